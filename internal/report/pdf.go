package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// RenderPDF lays out the monthly report as an A4 document.
func RenderPDF(r *Rapport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(37, 99, 235)
	pdf.Cell(0, 12, "ToitureAI")
	pdf.Ln(14)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Rapport mensuel - %s", r.Periode.Titre())))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.Cell(0, 5, tr(fmt.Sprintf("Généré le %s", r.GenereLe.Format("02/01/2006 à 15:04"))))
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(12)

	// Lead KPIs
	sectionTitle(pdf, tr, "Leads")
	kpiRow(pdf, tr, "Total", fmt.Sprintf("%d", r.Leads.Total))
	kpiRow(pdf, tr, "Gagnés", fmt.Sprintf("%d", r.Leads.Gagnes))
	kpiRow(pdf, tr, "Perdus", fmt.Sprintf("%d", r.Leads.Perdus))
	kpiRow(pdf, tr, "En cours", fmt.Sprintf("%d", r.Leads.EnCours))
	kpiRow(pdf, tr, "Taux de conversion", fmt.Sprintf("%.1f %%", r.Leads.TauxConversion()))
	pdf.Ln(6)

	// Devis KPIs
	sectionTitle(pdf, tr, "Devis")
	kpiRow(pdf, tr, "Total", fmt.Sprintf("%d", r.Devis.Total))
	kpiRow(pdf, tr, "Signés", fmt.Sprintf("%d", r.Devis.Signes))
	kpiRow(pdf, tr, "Payés", fmt.Sprintf("%d", r.Devis.Payes))
	kpiRow(pdf, tr, "En attente", fmt.Sprintf("%d", r.Devis.EnAttente))
	kpiRow(pdf, tr, "Refusés", fmt.Sprintf("%d", r.Devis.Refuses))
	kpiRow(pdf, tr, "Taux de signature", fmt.Sprintf("%.1f %%", r.Devis.TauxSignature()))
	pdf.Ln(6)

	// Financial KPIs
	sectionTitle(pdf, tr, "Chiffre d'affaires")
	kpiRow(pdf, tr, "CA mensuel (signé)", r.Finances.CAMensuel.String())
	kpiRow(pdf, tr, "CA encaissé", r.Finances.CAEncaisse.String())
	kpiRow(pdf, tr, "Panier moyen", r.Finances.PanierMoyen.String())
	kpiRow(pdf, tr, "CA potentiel", r.Finances.CAPotentiel.String())
	pdf.Ln(6)

	// Top clients
	if len(r.TopClients) > 0 {
		sectionTitle(pdf, tr, "Top clients")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(12, 7, "#", "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 7, "Client", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 7, "Ville", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, "Devis", "1", 0, "R", true, 0, "")
		pdf.CellFormat(50, 7, "Montant", "1", 1, "R", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for _, c := range r.TopClients {
			pdf.CellFormat(12, 7, fmt.Sprintf("%d", c.Rang), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 7, tr(c.Nom), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, tr(c.Ville), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, fmt.Sprintf("%d", c.NbDevis), "1", 0, "R", false, 0, "")
			pdf.CellFormat(50, 7, tr(c.MontantTotal.String()), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(6)
	}

	// Quote detail
	if len(r.Detail) > 0 {
		sectionTitle(pdf, tr, "Devis du mois")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(45, 7, tr("Numéro"), "1", 0, "L", true, 0, "")
		pdf.CellFormat(55, 7, "Client", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(27, 7, "Statut", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "TTC", "1", 1, "R", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for _, d := range r.Detail {
			pdf.CellFormat(45, 7, tr(d.Numero), "1", 0, "L", false, 0, "")
			pdf.CellFormat(55, 7, tr(d.ClientNom), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, d.CreatedAt.Format("02/01/2006"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(27, 7, tr(d.Statut), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 7, tr(d.MontantTTC.String()), "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render rapport pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(9)
}

func kpiRow(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(70, 6, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 6, tr(value), "", 1, "L", false, 0, "")
}

// PDFFilename returns the storage name for a monthly report.
func PDFFilename(month, year int) string {
	return fmt.Sprintf("rapport-%d-%02d.pdf", year, month)
}

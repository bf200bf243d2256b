package devis

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// ClientInfo carries the client block printed on the document.
type ClientInfo struct {
	Nom     string
	Email   string
	Adresse string
}

// RenderPDF lays out the quote as an A4 document and returns the bytes.
func RenderPDF(d *Devis, client ClientInfo) ([]byte, error) {
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
	pdf.Cell(0, 8, tr(fmt.Sprintf("Devis n°%s", d.Numero)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Date : %s", d.CreatedAt.Format("02/01/2006"))))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Valable jusqu'au : %s", d.Validite.Format("02/01/2006"))))
	pdf.Ln(10)

	// Client block
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Client")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, tr(client.Nom))
	pdf.Ln(5)
	if client.Adresse != "" {
		pdf.Cell(0, 5, tr(client.Adresse))
		pdf.Ln(5)
	}
	pdf.Cell(0, 5, tr(client.Email))
	pdf.Ln(10)

	// Line table
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(90, 7, tr("Désignation"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, tr("Qté"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 7, tr("Unité"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, tr("PU HT (€)"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, tr("Total HT (€)"), "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range d.Lignes {
		pdf.CellFormat(90, 7, tr(l.Designation), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, trimFloat(l.Quantite), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, tr(l.Unite), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", l.PrixUnitaireHT), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", l.TotalHT), "1", 1, "R", false, 0, "")
	}

	// Totals
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 10)
	totalRow(pdf, tr, "Total HT", d.TotalHT.String())
	totalRow(pdf, tr, fmt.Sprintf("TVA (%.1f%%)", d.TVATaux), d.TotalTVA.String())
	pdf.SetFont("Helvetica", "B", 11)
	totalRow(pdf, tr, "Total TTC", d.TotalTTC.String())

	// Footer
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(0, 4, tr("Devis établi par ToitureAI. Prix fermes et non révisables pendant la durée de validité. "+
		"Acompte de 30% à la signature, solde à la fin des travaux."), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render devis pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func totalRow(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(130, 7, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, tr(label), "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, tr(value), "", 1, "R", false, 0, "")
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// PDFFilename returns the storage name for a quote document.
func PDFFilename(clientNom string, now time.Time) string {
	return fmt.Sprintf("devis-%s-%s.pdf", slugify(clientNom), now.Format("20060102"))
}

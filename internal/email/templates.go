package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/toitureai/leadgw/internal/lead"
)

var frenchMonths = [...]string{"", "janvier", "février", "mars", "avril", "mai",
	"juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}

// MonthName returns the French month name for 1..12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("mois %d", month)
	}
	return frenchMonths[month]
}

var leadConfirmationTmpl = template.Must(template.New("lead_confirmation").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Bonjour {{.Lead.Prenom}} {{.Lead.Nom}},</h2>
  <p>Merci pour votre demande de <strong>{{.Lead.TypeProjet}}</strong>. Notre équipe
  l'a bien reçue et vous recontactera sous 24h ouvrées.</p>
  <p>En attendant, découvrez nos réalisations :</p>
  <p><a href="{{.ClickURL}}" style="background:#2563eb;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">Voir nos réalisations</a></p>
  <p>À très vite,<br>L'équipe ToitureAI</p>
  <img src="{{.OpenURL}}" width="1" height="1" alt="">
</body>
</html>`))

// LeadConfirmation builds the acknowledgement mail sent to the lead. The open
// pixel and the click link both carry signed tracking URLs.
func LeadConfirmation(l *lead.Lead, clickURL, openURL string) (Message, error) {
	var buf bytes.Buffer
	err := leadConfirmationTmpl.Execute(&buf, struct {
		Lead     *lead.Lead
		ClickURL template.URL
		OpenURL  template.URL
	}{l, template.URL(clickURL), template.URL(openURL)})
	if err != nil {
		return Message{}, fmt.Errorf("render lead confirmation: %w", err)
	}

	return Message{
		ToEmail: l.Email,
		ToName:  l.NomComplet(),
		Subject: fmt.Sprintf("Merci %s %s ! Votre demande a été reçue ✅", l.Prenom, l.Nom),
		HTML:    buf.String(),
	}, nil
}

var teamAlertTmpl = template.Must(template.New("team_alert").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
  {{if .IsHot}}<h2 style="color:#dc2626;">Lead chaud à rappeler en priorité</h2>{{else}}<h2>Nouveau lead</h2>{{end}}
  <table cellpadding="6">
    <tr><td><strong>Nom</strong></td><td>{{.Lead.Prenom}} {{.Lead.Nom}}</td></tr>
    <tr><td><strong>Email</strong></td><td>{{.Lead.Email}}</td></tr>
    <tr><td><strong>Téléphone</strong></td><td>{{.Lead.Telephone}}</td></tr>
    <tr><td><strong>Projet</strong></td><td>{{.Lead.TypeProjet}}</td></tr>
    {{if .Lead.Surface}}<tr><td><strong>Surface</strong></td><td>{{.Lead.Surface}} m²</td></tr>{{end}}
    {{if .Lead.Budget}}<tr><td><strong>Budget</strong></td><td>{{.Lead.Budget}} €</td></tr>{{end}}
    <tr><td><strong>Délai</strong></td><td>{{.Lead.Delai}}</td></tr>
    <tr><td><strong>Adresse</strong></td><td>{{.Lead.Adresse}}, {{.Lead.CodePostal}} {{.Lead.Ville}}</td></tr>
    <tr><td><strong>Score</strong></td><td>{{.Lead.ScoreIA}}/100 ({{.Lead.Urgence}})</td></tr>
    <tr><td><strong>Recommandation</strong></td><td>{{.Lead.Recommandation}}</td></tr>
  </table>
  {{if .Lead.Description}}<p><strong>Description :</strong> {{.Lead.Description}}</p>{{end}}
</body>
</html>`))

// TeamAlert builds the internal notification. Hot leads get the urgent
// subject so they stand out in the team inbox.
func TeamAlert(l *lead.Lead, adminEmail string, isHot bool) (Message, error) {
	var buf bytes.Buffer
	err := teamAlertTmpl.Execute(&buf, struct {
		Lead  *lead.Lead
		IsHot bool
	}{l, isHot})
	if err != nil {
		return Message{}, fmt.Errorf("render team alert: %w", err)
	}

	subject := fmt.Sprintf("📋 Nouveau lead : %s %s (Score : %d)", l.Nom, l.Prenom, l.ScoreIA)
	if isHot {
		subject = fmt.Sprintf("🚨 URGENT : Lead chaud - %s %s (Score : %d)", l.Nom, l.Prenom, l.ScoreIA)
	}

	return Message{
		ToEmail: adminEmail,
		Subject: subject,
		HTML:    buf.String(),
	}, nil
}

var devisTmpl = template.Must(template.New("devis").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Bonjour {{.ClientName}},</h2>
  <p>Veuillez trouver ci-joint votre devis <strong>n°{{.Numero}}</strong> d'un montant
  de <strong>{{.TotalTTC}}</strong> TTC, valable jusqu'au {{.Validite}}.</p>
  <p>Pour toute question ou pour planifier une visite, répondez simplement à cet email.</p>
  <p>Cordialement,<br>L'équipe ToitureAI</p>
</body>
</html>`))

// Devis builds the quote delivery mail. The PDF is attached by the caller.
func Devis(clientName, clientEmail, numero, totalTTC, validite string, pdf []byte, pdfName string) (Message, error) {
	var buf bytes.Buffer
	err := devisTmpl.Execute(&buf, struct {
		ClientName, Numero, TotalTTC, Validite string
	}{clientName, numero, totalTTC, validite})
	if err != nil {
		return Message{}, fmt.Errorf("render devis email: %w", err)
	}

	return Message{
		ToEmail: clientEmail,
		ToName:  clientName,
		Subject: fmt.Sprintf("Votre devis ToitureAI n°%s", numero),
		HTML:    buf.String(),
		Attachments: []Attachment{
			{Filename: pdfName, Content: pdf, MIMEType: "application/pdf"},
		},
	}, nil
}

var signedTmpl = template.Must(template.New("devis_signed").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Bonjour {{.ClientName}},</h2>
  <p>Nous avons bien reçu votre devis <strong>n°{{.Numero}}</strong> signé. Merci pour votre confiance !</p>
  <p>Notre équipe vous contacte très prochainement pour planifier les travaux.</p>
  <p>Cordialement,<br>L'équipe ToitureAI</p>
</body>
</html>`))

// DevisSigned builds the confirmation sent after e-signature completion.
func DevisSigned(clientName, clientEmail, numero string) (Message, error) {
	var buf bytes.Buffer
	err := signedTmpl.Execute(&buf, struct{ ClientName, Numero string }{clientName, numero})
	if err != nil {
		return Message{}, fmt.Errorf("render signed confirmation: %w", err)
	}

	return Message{
		ToEmail: clientEmail,
		ToName:  clientName,
		Subject: fmt.Sprintf("Devis n°%s signé - Merci ! ✅", numero),
		HTML:    buf.String(),
	}, nil
}

var reportTmpl = template.Must(template.New("monthly_report").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Rapport mensuel - {{.Month}} {{.Year}}</h2>
  <table cellpadding="6">
    <tr><td><strong>Leads reçus</strong></td><td>{{.NbLeads}}</td></tr>
    <tr><td><strong>Leads gagnés</strong></td><td>{{.NbLeadsGagnes}}</td></tr>
    <tr><td><strong>Devis émis</strong></td><td>{{.NbDevis}}</td></tr>
    <tr><td><strong>Devis signés</strong></td><td>{{.NbDevisSignes}}</td></tr>
    <tr><td><strong>CA mensuel</strong></td><td>{{.CAMensuel}}</td></tr>
  </table>
  <p>Le rapport complet est joint en PDF.</p>
</body>
</html>`))

// MonthlyReport builds the admin report mail with the PDF attached.
func MonthlyReport(adminEmail string, month, year, nbLeads, nbLeadsGagnes, nbDevis, nbDevisSignes int, caMensuel string, pdf []byte, pdfName string) (Message, error) {
	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		Month                                                string
		Year, NbLeads, NbLeadsGagnes, NbDevis, NbDevisSignes int
		CAMensuel                                            string
	}{MonthName(month), year, nbLeads, nbLeadsGagnes, nbDevis, nbDevisSignes, caMensuel})
	if err != nil {
		return Message{}, fmt.Errorf("render monthly report email: %w", err)
	}

	return Message{
		ToEmail: adminEmail,
		Subject: fmt.Sprintf("📊 Rapport mensuel ToitureAI - %s %d", MonthName(month), year),
		HTML:    buf.String(),
		Attachments: []Attachment{
			{Filename: pdfName, Content: pdf, MIMEType: "application/pdf"},
		},
	}, nil
}

var errorAlertTmpl = template.Must(template.New("error_alert").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color:#dc2626;">Erreur dans le workflow {{.Workflow}}</h2>
  <p><strong>Étape :</strong> {{.Step}}</p>
  <p><strong>Détail :</strong> {{.Detail}}</p>
  <p>Consultez les logs du service pour le contexte complet.</p>
</body>
</html>`))

// ErrorAlert builds the admin notification for a workflow failure.
func ErrorAlert(adminEmail, workflow, step, detail string) (Message, error) {
	var buf bytes.Buffer
	err := errorAlertTmpl.Execute(&buf, struct{ Workflow, Step, Detail string }{workflow, step, detail})
	if err != nil {
		return Message{}, fmt.Errorf("render error alert: %w", err)
	}

	return Message{
		ToEmail: adminEmail,
		Subject: fmt.Sprintf("⚠️ Erreur ToitureAI - %s", workflow),
		HTML:    buf.String(),
	}, nil
}

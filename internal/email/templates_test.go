package email

import (
	"html"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toitureai/leadgw/internal/lead"
)

func testLead() *lead.Lead {
	return &lead.Lead{
		Nom:        "Dupont",
		Prenom:     "Marie",
		Email:      "marie@example.com",
		Telephone:  "+33612345678",
		TypeProjet: "renovation",
		Surface:    120,
		Budget:     15000,
		Delai:      "urgent",
		Adresse:    "12 rue des Lilas",
		Ville:      "Lyon",
		CodePostal: "69003",
		ScoreIA:    85,
		Urgence:    "haute",
	}
}

func TestLeadConfirmation(t *testing.T) {
	clickURL := "https://api.example.com/api/v1/tracking/track-lead?lead_id=l1&type=click&s=abc"
	openURL := "https://api.example.com/api/v1/tracking/track-lead?lead_id=l1&type=open&s=def"

	msg, err := LeadConfirmation(testLead(), clickURL, openURL)
	require.NoError(t, err)

	assert.Equal(t, "marie@example.com", msg.ToEmail)
	assert.Contains(t, msg.Subject, "Marie Dupont")
	// The template escapes entities in the rendered HTML (& becomes &amp;).
	body := html.UnescapeString(msg.HTML)
	assert.Contains(t, body, clickURL)
	assert.Contains(t, body, openURL)
	assert.Contains(t, body, `width="1" height="1"`)
}

func TestTeamAlertSubjects(t *testing.T) {
	hot, err := TeamAlert(testLead(), "admin@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", hot.ToEmail)
	assert.Contains(t, hot.Subject, "URGENT")
	assert.Contains(t, hot.Subject, "Score : 85")

	std, err := TeamAlert(testLead(), "admin@example.com", false)
	require.NoError(t, err)
	assert.NotContains(t, std.Subject, "URGENT")
	assert.Contains(t, std.Subject, "Nouveau lead")
	assert.Contains(t, html.UnescapeString(std.HTML), "+33612345678")
}

func TestDevisEmail(t *testing.T) {
	pdf := []byte("%PDF-1.4")
	msg, err := Devis("Marie Dupont", "marie@example.com", "DEV-20260115-A1B2C3", "14 520,00 €", "14/02/2026", pdf, "devis-dupont-20260115.pdf")
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "DEV-20260115-A1B2C3")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "application/pdf", msg.Attachments[0].MIMEType)
	assert.Equal(t, pdf, msg.Attachments[0].Content)
}

func TestMonthlyReportEmail(t *testing.T) {
	msg, err := MonthlyReport("admin@example.com", 1, 2026, 42, 12, 20, 8, "54 300,00 €", []byte("%PDF"), "rapport-2026-01.pdf")
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "janvier 2026")
	assert.Contains(t, msg.HTML, "54 300,00 €")
	require.Len(t, msg.Attachments, 1)
}

func TestErrorAlertEmail(t *testing.T) {
	msg, err := ErrorAlert("admin@example.com", "lead_webhook", "ai_qualification", "timeout after 30s")
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "lead_webhook")
	assert.Contains(t, msg.HTML, "ai_qualification")
	assert.Contains(t, msg.HTML, "timeout after 30s")
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "janvier", MonthName(1))
	assert.Equal(t, "décembre", MonthName(12))
	assert.Equal(t, "mois 13", MonthName(13))
}

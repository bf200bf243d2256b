package lead

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() *WebhookPayload {
	return &WebhookPayload{
		Nom:          "Dupont",
		Prenom:       "Marie",
		Email:        "Marie.Dupont@Example.com ",
		Telephone:    "06 12 34 56 78",
		TypeDeProjet: "Rénovation complète",
		Adresse:      "12 rue des Lilas",
		Ville:        "Lyon",
		CodePostal:   "69003",
		RGPD:         true,
	}
}

func TestValidate(t *testing.T) {
	l, err := validPayload().Validate()
	require.NoError(t, err)

	assert.Equal(t, "Dupont", l.Nom)
	assert.Equal(t, "marie.dupont@example.com", l.Email)
	assert.Equal(t, "+33612345678", l.Telephone)
	assert.Equal(t, "renovation", l.TypeProjet)
	assert.Equal(t, "flexible", l.Delai)
	assert.Equal(t, StatutNouveau, l.Statut)
	assert.Equal(t, "Marie Dupont", l.NomComplet())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WebhookPayload)
	}{
		{"missing rgpd", func(p *WebhookPayload) { p.RGPD = false }},
		{"short nom", func(p *WebhookPayload) { p.Nom = "D" }},
		{"bad email", func(p *WebhookPayload) { p.Email = "not-an-email" }},
		{"short phone", func(p *WebhookPayload) { p.Telephone = "0612" }},
		{"missing ville", func(p *WebhookPayload) { p.Ville = "" }},
		{"missing adresse", func(p *WebhookPayload) { p.Adresse = "  " }},
		{"missing code postal", func(p *WebhookPayload) { p.CodePostal = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			_, err := p.Validate()
			assert.Error(t, err)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0612345678", "+33612345678"},
		{"06 12 34 56 78", "+33612345678"},
		{"+33612345678", "+33612345678"},
		{"06.12.34.56.78", "+33612345678"},
		{"612345678", "+33612345678"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}

func TestNormalizeTypeProjet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Réparation (fuite, tuiles cassées...)", "reparation"},
		{"RÉNOVATION", "renovation"},
		{"isolation thermique", "isolation"},
		{"Installation neuve", "installation"},
		{"Entretien / Maintenance", "entretien"},
		{"maintenance", "entretien"},
		{"quelque chose d'autre", "autre"},
		{"", "autre"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTypeProjet(tt.in), tt.in)
	}
}

func TestNormalizeDelai(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Urgent (sous 48h)", "urgent"},
		{"dans 1-2 semaines", "1-2 semaines"},
		{"Dans 1 mois", "1 mois"},
		{"2-3 mois", "2-3 mois"},
		{"Flexible / à convenir", "flexible"},
		{"whenever", "flexible"},
		{"", "flexible"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDelai(tt.in), tt.in)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"number", `15000`, 15000},
		{"float", `120.7`, 120},
		{"string number", `"15000"`, 15000},
		{"string float", `"120.7"`, 120},
		{"negative", `-5`, 0},
		{"zero", `0`, 0},
		{"garbage string", `"beaucoup"`, 0},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseNumber(json.RawMessage(tt.raw)))
		})
	}
}

func TestParseNumberAbsent(t *testing.T) {
	assert.Equal(t, 0, parseNumber(nil))
}

func TestUpdateValidateStatut(t *testing.T) {
	good := StatutQualifie
	assert.NoError(t, (&Update{Statut: &good}).ValidateStatut())

	bad := "invente"
	assert.Error(t, (&Update{Statut: &bad}).ValidateStatut())

	assert.NoError(t, (&Update{}).ValidateStatut())
}

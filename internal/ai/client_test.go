package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toitureai/leadgw/internal/lead"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}

func TestBuildQualificationPrompt(t *testing.T) {
	l := &lead.Lead{
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
	}

	prompt := buildQualificationPrompt(l)
	assert.Contains(t, prompt, "Dupont Marie")
	assert.Contains(t, prompt, "renovation")
	assert.Contains(t, prompt, "120 m²")
	assert.Contains(t, prompt, "15000 €")
	assert.Contains(t, prompt, "Aucune description")
}

func TestBuildQualificationPromptUnspecified(t *testing.T) {
	prompt := buildQualificationPrompt(&lead.Lead{Nom: "Dupont"})
	assert.Equal(t, 2, strings.Count(prompt, "Non spécifié"))
}

func TestBuildDevisPrompt(t *testing.T) {
	prompt := buildDevisPrompt("isolation", 80, "toit pentu", "")
	assert.Contains(t, prompt, "type_projet: isolation")
	assert.Contains(t, prompt, "surface: 80 m2")
	assert.Contains(t, prompt, "contraintes: toit pentu")
	assert.Contains(t, prompt, "description: n/a")

	prompt = buildDevisPrompt("renovation", 0, "", "refaire la toiture")
	assert.Contains(t, prompt, "surface: non specifiee m2")
}

// Package ai wraps the LLM calls: lead qualification scoring and quote line
// drafting. Every call degrades to a deterministic fallback so an LLM outage
// never blocks lead intake.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/log"
)

const qualificationSystemPrompt = `Tu es un assistant expert en qualification de leads pour travaux de toiture en France.
Tu dois analyser les informations du lead et retourner STRICTEMENT un JSON valide.

Critères de scoring:
- Budget élevé (>10000€) = +20 points
- Urgence déclarée = +15 points
- Surface importante (>100m²) = +10 points
- Contact téléphonique fourni = +10 points
- Description détaillée = +10 points
- Type de projet (rénovation/isolation > réparation > entretien) = +5 à +15 points
- Localisation précise = +5 points

Segments possibles:
- "particulier", "professionnel"
- "urgent", "planifié"
- "petit_budget", "budget_moyen", "gros_budget"
- "renovation_complete", "reparation_ponctuelle", "entretien_regulier"

Retourne EXACTEMENT ce format JSON, sans texte supplémentaire:
{
  "score": <0-100>,
  "urgence": "faible|moyenne|haute",
  "recommandation": "<texte concis max 100 caractères>",
  "segments": ["<segment1>", "<segment2>"]
}`

const devisSystemPrompt = `Tu es un estimateur de travaux toiture expert en France.
Tu generes des devis detailles, realistes et professionnels pour des projets de couverture.
Les prix doivent etre en euros HT et coherents avec le marche francais 2024-2025.
Reponds UNIQUEMENT en JSON valide sans texte supplementaire.`

// Qualifier scores leads via an LLM.
type Qualifier interface {
	QualifyLead(ctx context.Context, l *lead.Lead) lead.Qualification
}

// LineDrafter drafts quote lines via an LLM. The returned string is the raw
// JSON answer; the devis package owns parsing and fallback.
type LineDrafter interface {
	DraftDevisLines(ctx context.Context, typeProjet string, surface int, contraintes, description string) (string, error)
}

// Client talks to the Gemini API.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewClient builds an LLM client. An empty API key is an error; callers that
// want to run without an LLM should skip construction and rely on the
// deterministic scorer.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client: client,
		model:  model,
		logger: log.WithComponent("ai"),
	}, nil
}

// QualifyLead asks the model for a score. Any failure returns the fallback
// qualification; the lead is stored either way.
func (c *Client) QualifyLead(ctx context.Context, l *lead.Lead) lead.Qualification {
	prompt := buildQualificationPrompt(l)

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(qualificationSystemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.5),
			MaxOutputTokens:   200,
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		c.logger.Warn("lead qualification failed, using fallback", "error", err)
		return lead.FallbackQualification()
	}

	return lead.ParseQualification(resp.Text())
}

// DraftDevisLines asks the model for quote lines matching the project.
func (c *Client) DraftDevisLines(ctx context.Context, typeProjet string, surface int, contraintes, description string) (string, error) {
	prompt := buildDevisPrompt(typeProjet, surface, contraintes, description)

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(devisSystemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.3),
			MaxOutputTokens:   1500,
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return "", fmt.Errorf("draft devis lines: %w", err)
	}
	return resp.Text(), nil
}

func buildQualificationPrompt(l *lead.Lead) string {
	return fmt.Sprintf(`Analyse ce lead et retourne le JSON de qualification:

Nom: %s %s
Email: %s
Téléphone: %s
Type de projet: %s
Surface: %s m²
Budget estimé: %s €
Délai souhaité: %s
Adresse: %s, %s %s
Description: %s`,
		l.Nom, l.Prenom, l.Email, l.Telephone, l.TypeProjet,
		orUnspecified(l.Surface), orUnspecified(l.Budget), l.Delai,
		l.Adresse, l.CodePostal, l.Ville, orText(l.Description, "Aucune description"))
}

func buildDevisPrompt(typeProjet string, surface int, contraintes, description string) string {
	surfaceTxt := "non specifiee"
	if surface > 0 {
		surfaceTxt = fmt.Sprintf("%d", surface)
	}
	return fmt.Sprintf(`Genere des lignes de devis coherentes au format JSON strict, basees sur:
- type_projet: %s
- surface: %s m2
- contraintes: %s
- description: %s

Format de reponse STRICT (JSON uniquement):
{
  "lignes": [
    {"designation": "Description du poste", "quantite": 10, "unite": "m2", "prix_unitaire_ht": 50.00},
    ...
  ],
  "notes": "Notes complementaires courtes"
}`, typeProjet, surfaceTxt, orText(contraintes, "n/a"), orText(description, "n/a"))
}

func orUnspecified(n int) string {
	if n <= 0 {
		return "Non spécifié"
	}
	return fmt.Sprintf("%d", n)
}

func orText(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Package lead holds the lead domain model: inbound form payload validation
// and normalization, the persisted record, and the deterministic fallback
// scorer used when the LLM is unavailable.
package lead

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Lead statuses.
const (
	StatutNouveau     = "nouveau"
	StatutContacte    = "contacte"
	StatutQualifie    = "qualifie"
	StatutDevisEnvoye = "devis_envoye"
	StatutAccepte     = "accepte"
	StatutRefuse      = "refuse"
	StatutPerdu       = "perdu"
	StatutChaud       = "chaud"
)

// ValidStatuts lists every accepted lead status.
var ValidStatuts = map[string]bool{
	StatutNouveau:     true,
	StatutContacte:    true,
	StatutQualifie:    true,
	StatutDevisEnvoye: true,
	StatutAccepte:     true,
	StatutRefuse:      true,
	StatutPerdu:       true,
	StatutChaud:       true,
}

// WebhookPayload is the raw web-form submission. Field names follow the
// form's camelCase convention; surface and budget accept either a string or
// a number.
type WebhookPayload struct {
	Nom          string          `json:"nom"`
	Prenom       string          `json:"prenom"`
	Email        string          `json:"email"`
	Telephone    string          `json:"telephone"`
	TypeDeProjet string          `json:"typeDeProjet"`
	Surface      json.RawMessage `json:"surface,omitempty"`
	Budget       json.RawMessage `json:"budget,omitempty"`
	Delai        string          `json:"delai,omitempty"`
	Description  string          `json:"description,omitempty"`
	Adresse      string          `json:"adresse"`
	Ville        string          `json:"ville"`
	CodePostal   string          `json:"codePostal"`
	RGPD         bool            `json:"rgpd"`
	Source       string          `json:"source,omitempty"`
	CaptchaToken string          `json:"captchaToken,omitempty"`
}

// Lead is the persisted record.
type Lead struct {
	ID                  string     `json:"id"`
	Nom                 string     `json:"nom"`
	Prenom              string     `json:"prenom"`
	Email               string     `json:"email"`
	Telephone           string     `json:"telephone"`
	TypeProjet          string     `json:"type_projet"`
	Surface             int        `json:"surface,omitempty"`
	Budget              int        `json:"budget_estime,omitempty"`
	Delai               string     `json:"delai"`
	Description         string     `json:"description,omitempty"`
	Adresse             string     `json:"adresse"`
	Ville               string     `json:"ville"`
	CodePostal          string     `json:"code_postal"`
	Statut              string     `json:"statut"`
	ScoreIA             int        `json:"score_ia"`
	Urgence             string     `json:"urgence,omitempty"`
	Recommandation      string     `json:"recommandation,omitempty"`
	Segments            []string   `json:"segments,omitempty"`
	LeadChaud           bool       `json:"lead_chaud"`
	EmailOuvert         bool       `json:"email_ouvert"`
	EmailOuvertCount    int        `json:"email_ouvert_count"`
	EmailClicCount      int        `json:"email_clic_count"`
	SendGridMessageID   string     `json:"sendgrid_message_id,omitempty"`
	DerniereInteraction *time.Time `json:"derniere_interaction,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NomComplet returns "Prenom Nom" for email templates and PDFs.
func (l *Lead) NomComplet() string {
	return strings.TrimSpace(l.Prenom + " " + l.Nom)
}

var (
	phoneStrip = regexp.MustCompile(`[^\d+]`)
	emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Validate checks required fields and returns the normalized lead (without
// identity or timestamps, which the repository assigns).
func (p *WebhookPayload) Validate() (*Lead, error) {
	if !p.RGPD {
		return nil, fmt.Errorf("rgpd consent is required")
	}
	nom := strings.TrimSpace(p.Nom)
	if len(nom) < 2 {
		return nil, fmt.Errorf("nom is required (min 2 characters)")
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if !emailShape.MatchString(email) {
		return nil, fmt.Errorf("email is invalid")
	}
	phone := NormalizePhone(p.Telephone)
	if len(phone) < 10 {
		return nil, fmt.Errorf("telephone is invalid")
	}
	for field, value := range map[string]string{
		"typeDeProjet": p.TypeDeProjet,
		"adresse":      p.Adresse,
		"ville":        p.Ville,
		"codePostal":   p.CodePostal,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%s is required", field)
		}
	}

	return &Lead{
		Nom:         nom,
		Prenom:      strings.TrimSpace(p.Prenom),
		Email:       email,
		Telephone:   phone,
		TypeProjet:  NormalizeTypeProjet(p.TypeDeProjet),
		Surface:     parseNumber(p.Surface),
		Budget:      parseNumber(p.Budget),
		Delai:       NormalizeDelai(p.Delai),
		Description: strings.TrimSpace(p.Description),
		Adresse:     strings.TrimSpace(p.Adresse),
		Ville:       strings.TrimSpace(p.Ville),
		CodePostal:  strings.TrimSpace(p.CodePostal),
		Statut:      StatutNouveau,
	}, nil
}

// NormalizePhone rewrites French numbers to +33 form:
// "0612345678" and "06 12 34 56 78" both become "+33612345678".
func NormalizePhone(v string) string {
	if v == "" {
		return ""
	}
	cleaned := phoneStrip.ReplaceAllString(v, "")
	if strings.HasPrefix(cleaned, "0") && len(cleaned) >= 10 {
		cleaned = "+33" + cleaned[1:]
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+33" + cleaned
	}
	return cleaned
}

var typeProjetMapping = map[string]string{
	"réparation (fuite, tuiles cassées...)": "reparation",
	"reparation (fuite, tuiles cassées...)": "reparation",
	"réparation":              "reparation",
	"reparation":              "reparation",
	"rénovation complète":     "renovation",
	"renovation complete":     "renovation",
	"rénovation":              "renovation",
	"renovation":              "renovation",
	"isolation thermique":     "isolation",
	"isolation":               "isolation",
	"installation neuve":      "installation",
	"installation":            "installation",
	"entretien / maintenance": "entretien",
	"entretien":               "entretien",
	"maintenance":             "entretien",
	"autre":                   "autre",
}

// NormalizeTypeProjet maps free-form project labels to the canonical set.
// Unknown labels fall back to "autre".
func NormalizeTypeProjet(v string) string {
	if canonical, ok := typeProjetMapping[strings.ToLower(strings.TrimSpace(v))]; ok {
		return canonical
	}
	return "autre"
}

var delaiMapping = map[string]string{
	"urgent (sous 48h)":    "urgent",
	"urgent":               "urgent",
	"dans 1-2 semaines":    "1-2 semaines",
	"1-2 semaines":         "1-2 semaines",
	"dans 1 mois":          "1 mois",
	"1 mois":               "1 mois",
	"dans 2-3 mois":        "2-3 mois",
	"2-3 mois":             "2-3 mois",
	"flexible / à convenir": "flexible",
	"flexible":             "flexible",
}

// NormalizeDelai maps free-form timeline labels to the canonical set.
// Unknown or empty labels fall back to "flexible".
func NormalizeDelai(v string) string {
	if canonical, ok := delaiMapping[strings.ToLower(strings.TrimSpace(v))]; ok {
		return canonical
	}
	return "flexible"
}

// parseNumber accepts a JSON number or numeric string; non-positive and
// unparseable values become zero.
func parseNumber(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 0 {
			return int(n)
		}
		return 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n <= 0 {
		return 0
	}
	return int(n)
}

// Update carries the fields an admin PATCH may change. Pointers distinguish
// "leave alone" from "set to zero value".
type Update struct {
	Statut            *string         `json:"statut,omitempty"`
	Notes             *string         `json:"notes_devis_custom,omitempty"`
	BudgetNegocie     *int            `json:"budget_negocie,omitempty"`
	LignesDevisCustom json.RawMessage `json:"lignes_devis_custom,omitempty"`
}

// ValidateStatut rejects values outside the status enum.
func (u *Update) ValidateStatut() error {
	if u.Statut != nil && !ValidStatuts[*u.Statut] {
		return fmt.Errorf("invalid statut %q", *u.Statut)
	}
	return nil
}

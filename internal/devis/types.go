// Package devis builds, persists and renders quotes. Lines come from one of
// three sources, in priority order: lines the admin stored on the lead, a
// split of a negotiated budget, or an LLM draft with a deterministic
// per-surface fallback.
package devis

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/toitureai/leadgw/internal/money"
)

// Quote statuses.
const (
	StatutBrouillon = "brouillon"
	StatutGenere    = "genere"
	StatutEnvoye    = "envoye"
	StatutConsulte  = "consulte"
	StatutSigne     = "signe"
	StatutPaye      = "paye"
	StatutRefuse    = "refuse"
	StatutExpire    = "expire"
)

// ValidStatuts lists every accepted quote status.
var ValidStatuts = map[string]bool{
	StatutBrouillon: true,
	StatutGenere:    true,
	StatutEnvoye:    true,
	StatutConsulte:  true,
	StatutSigne:     true,
	StatutPaye:      true,
	StatutRefuse:    true,
	StatutExpire:    true,
}

// Line generation modes.
const (
	ModeCustomManual = "custom_manual"
	ModeBudgetManuel = "budget_manuel"
	ModeAI           = "ai"
)

// Ligne is one quote line. Prices are euros HT; TotalHT is always
// Quantite x PrixUnitaireHT rounded to the cent.
type Ligne struct {
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	Unite          string  `json:"unite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	TotalHT        float64 `json:"total_ht"`
}

var uniteMapping = map[string]string{
	"m2":            "m2",
	"m²":            "m2",
	"metre carre":   "m2",
	"ml":            "ml",
	"metre lineaire": "ml",
	"u":             "unite",
	"unite":         "unite",
	"unité":         "unite",
	"piece":         "unite",
	"pce":           "unite",
	"forfait":       "forfait",
	"fft":           "forfait",
	"h":             "heure",
	"heure":         "heure",
	"jour":          "jour",
	"j":             "jour",
}

// NormalizeUnite maps unit spellings to the canonical set; unknown units
// pass through lowercased.
func NormalizeUnite(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	if canonical, ok := uniteMapping[normalized]; ok {
		return canonical
	}
	if normalized == "" {
		return "unite"
	}
	return normalized
}

// Validate normalizes the line in place and recomputes its total.
func (l *Ligne) Validate() error {
	l.Designation = strings.TrimSpace(l.Designation)
	if len(l.Designation) < 3 {
		return fmt.Errorf("designation must be at least 3 characters")
	}
	if l.Quantite <= 0 {
		return fmt.Errorf("quantite must be positive")
	}
	if l.PrixUnitaireHT <= 0 {
		return fmt.Errorf("prix_unitaire_ht must be positive")
	}
	l.Unite = NormalizeUnite(l.Unite)
	l.TotalHT = round2(l.Quantite * l.PrixUnitaireHT)
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Params are the tunable quote parameters.
type Params struct {
	TVATaux       float64 `json:"tva_taux"`
	ValiditeJours int     `json:"validite_jours"`
}

// Validate applies defaults and bounds: TVA defaults to 20% (10 to 20
// accepted for roofing work), validity defaults to 30 days within 7 to 180.
func (p *Params) Validate() error {
	if p.TVATaux == 0 {
		p.TVATaux = 20.0
	}
	if p.TVATaux < 10 || p.TVATaux > 20 {
		return fmt.Errorf("tva_taux must be between 10 and 20 (got %.1f)", p.TVATaux)
	}
	if p.ValiditeJours == 0 {
		p.ValiditeJours = 30
	}
	if p.ValiditeJours < 7 || p.ValiditeJours > 180 {
		return fmt.Errorf("validite_jours must be between 7 and 180 (got %d)", p.ValiditeJours)
	}
	return nil
}

// Devis is the persisted quote.
type Devis struct {
	ID          string      `json:"id"`
	Numero      string      `json:"numero"`
	LeadID      string      `json:"lead_id"`
	ClientNom   string      `json:"client_nom"`
	ClientEmail string      `json:"client_email"`
	Lignes      []Ligne     `json:"lignes"`
	TotalHT     money.Cents `json:"total_ht"`
	TotalTVA    money.Cents `json:"total_tva"`
	TotalTTC    money.Cents `json:"total_ttc"`
	TVATaux     float64     `json:"tva_taux"`
	Validite    time.Time   `json:"validite"`
	Statut      string      `json:"statut"`
	Mode        string      `json:"mode"`
	URLPDF      string      `json:"url_pdf,omitempty"`
	PDFChecksum string      `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ComputeTotals derives the three totals from the lines and the TVA rate.
func (d *Devis) ComputeTotals() {
	var sumHT float64
	for _, l := range d.Lignes {
		sumHT += l.TotalHT
	}
	d.TotalHT = money.FromEuros(round2(sumHT))
	d.TotalTVA = money.FromEuros(round2(sumHT * d.TVATaux / 100))
	d.TotalTTC = d.TotalHT + d.TotalTVA
}

// GenerateNumero returns a quote number like DEV-20260115-A1B2C3.
func GenerateNumero(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("DEV-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(b[:])))
}

// slugify lowercases a client name for use in a filename, folding the
// accents common in French names.
func slugify(s string) string {
	replacer := strings.NewReplacer(
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"à", "a", "â", "a", "ç", "c", "î", "i", "ï", "i",
		"ô", "o", "ö", "o", "ù", "u", "û", "u", "ü", "u",
	)
	s = replacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "client"
	}
	return out
}

// budgetRepartition is the fixed split applied in budget mode.
var budgetRepartition = []struct {
	designation string
	part        float64
}{
	{"Main d'oeuvre", 0.40},
	{"Matériaux", 0.35},
	{"Échafaudage", 0.15},
	{"Évacuation des déchets", 0.10},
}

// LignesFromBudget splits a negotiated budget (euros HT) into the standard
// four posts.
func LignesFromBudget(budget float64) ([]Ligne, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("budget must be positive")
	}

	lignes := make([]Ligne, 0, len(budgetRepartition))
	for _, r := range budgetRepartition {
		l := Ligne{
			Designation:    r.designation,
			Quantite:       1,
			Unite:          "forfait",
			PrixUnitaireHT: round2(budget * r.part),
		}
		if err := l.Validate(); err != nil {
			return nil, err
		}
		lignes = append(lignes, l)
	}
	return lignes, nil
}

// FallbackLignes are the deterministic lines used when the LLM draft fails.
// Prices follow a simple per-square-meter grid with fixed posts.
func FallbackLignes(typeProjet string, surface int) []Ligne {
	if surface <= 0 {
		surface = 100
	}
	s := float64(surface)

	lignes := []Ligne{
		{Designation: fmt.Sprintf("Travaux de %s - fourniture matériaux", typeProjet), Quantite: s, Unite: "m2", PrixUnitaireHT: 80},
		{Designation: "Main d'oeuvre pose et finitions", Quantite: s, Unite: "m2", PrixUnitaireHT: 40},
		{Designation: "Échafaudage et sécurisation du chantier", Quantite: 1, Unite: "forfait", PrixUnitaireHT: 800},
		{Designation: "Évacuation des déchets", Quantite: 1, Unite: "forfait", PrixUnitaireHT: 400},
	}
	for i := range lignes {
		// Known-good constants; Validate cannot fail here.
		_ = lignes[i].Validate()
	}
	return lignes
}

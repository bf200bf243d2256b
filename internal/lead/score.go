package lead

import (
	"encoding/json"
	"strings"
)

// Qualification is the scoring outcome attached to a lead, whether it came
// from the LLM or from the deterministic fallback.
type Qualification struct {
	Score          int      `json:"score"`
	Urgence        string   `json:"urgence"`
	Recommandation string   `json:"recommandation"`
	Segments       []string `json:"segments"`
}

// FallbackQualification is used when the LLM call fails or returns something
// unparseable. The lead still gets stored and a human re-checks it.
func FallbackQualification() Qualification {
	return Qualification{
		Score:          50,
		Urgence:        "moyenne",
		Recommandation: "Revérifier manuellement",
		Segments:       []string{"a_verifier"},
	}
}

// ParseQualification decodes the LLM's JSON answer, tolerating surrounding
// markdown fences. Out-of-range or missing fields degrade to the fallback.
func ParseQualification(raw string) Qualification {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var q Qualification
	if err := json.Unmarshal([]byte(cleaned), &q); err != nil {
		return FallbackQualification()
	}
	if q.Score < 0 || q.Score > 100 {
		return FallbackQualification()
	}
	switch q.Urgence {
	case "faible", "moyenne", "haute":
	default:
		q.Urgence = "moyenne"
	}
	if q.Recommandation == "" {
		q.Recommandation = "Revérifier manuellement"
	}
	if len(q.Segments) == 0 {
		q.Segments = []string{"a_verifier"}
	}
	return q
}

// EstimateScoreSimple scores a lead without any external call. It mirrors
// the criteria given to the LLM so the two scales stay comparable.
func EstimateScoreSimple(l *Lead) int {
	score := 30

	switch {
	case l.Budget >= 20000:
		score += 25
	case l.Budget >= 10000:
		score += 20
	case l.Budget >= 5000:
		score += 15
	case l.Budget > 0:
		score += 5
	}

	switch {
	case l.Surface >= 150:
		score += 15
	case l.Surface >= 100:
		score += 10
	case l.Surface >= 50:
		score += 5
	}

	switch l.TypeProjet {
	case "renovation":
		score += 15
	case "isolation":
		score += 12
	case "installation":
		score += 10
	case "reparation":
		score += 8
	case "entretien":
		score += 5
	default:
		score += 3
	}

	switch l.Delai {
	case "urgent":
		score += 15
	case "1-2 semaines", "1 mois":
		score += 10
	}

	if l.Telephone != "" {
		score += 5
	}
	if l.Adresse != "" && l.Ville != "" && l.CodePostal != "" {
		score += 5
	}
	if len(l.Description) > 50 {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Package report builds the monthly activity report: KPIs over leads
// and quotes, top clients, a PDF rendering and an email to the admin.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/toitureai/leadgw/internal/devis"
	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/money"
)

// Periode is the month covered by a report.
type Periode struct {
	Mois  int       `json:"mois"`
	Annee int       `json:"annee"`
	Debut time.Time `json:"debut"`
	Fin   time.Time `json:"fin"`
}

// PeriodeFor computes the bounds of a given month in loc. The end bound
// is exclusive (first instant of the next month).
func PeriodeFor(month, year int, loc *time.Location) (Periode, error) {
	if month < 1 || month > 12 {
		return Periode{}, fmt.Errorf("mois must be between 1 and 12 (got %d)", month)
	}
	if year < 2020 {
		return Periode{}, fmt.Errorf("annee must be 2020 or later (got %d)", year)
	}
	debut := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Periode{Mois: month, Annee: year, Debut: debut, Fin: debut.AddDate(0, 1, 0)}, nil
}

// PreviousMonth returns the month/year preceding now in loc.
func PreviousMonth(now time.Time, loc *time.Location) (month, year int) {
	t := now.In(loc).AddDate(0, 0, -now.In(loc).Day())
	return int(t.Month()), t.Year()
}

// Titre renders the period as "Mois Annee" with the French month name.
func (p Periode) Titre() string {
	return fmt.Sprintf("%s %d", frenchMonths[p.Mois], p.Annee)
}

var frenchMonths = [13]string{"",
	"Janvier", "Fevrier", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Aout", "Septembre", "Octobre", "Novembre", "Decembre",
}

// LeadKPIs counts leads by outcome over a period.
type LeadKPIs struct {
	Total   int `json:"total"`
	Gagnes  int `json:"gagnes"`
	Perdus  int `json:"perdus"`
	EnCours int `json:"en_cours"`
}

// TauxConversion is the won share in percent, one decimal.
func (k LeadKPIs) TauxConversion() float64 {
	if k.Total == 0 {
		return 0
	}
	return round1(float64(k.Gagnes) / float64(k.Total) * 100)
}

// TauxPerte is the lost share in percent, one decimal.
func (k LeadKPIs) TauxPerte() float64 {
	if k.Total == 0 {
		return 0
	}
	return round1(float64(k.Perdus) / float64(k.Total) * 100)
}

// DevisKPIs counts quotes by outcome over a period.
type DevisKPIs struct {
	Total     int `json:"total"`
	Signes    int `json:"signes"`
	Payes     int `json:"payes"`
	EnAttente int `json:"en_attente"`
	Refuses   int `json:"refuses"`
}

// TauxSignature is the signed share in percent, one decimal.
func (k DevisKPIs) TauxSignature() float64 {
	if k.Total == 0 {
		return 0
	}
	return round1(float64(k.Signes) / float64(k.Total) * 100)
}

// TauxPaiement is the paid share among signed quotes, in percent.
func (k DevisKPIs) TauxPaiement() float64 {
	if k.Signes == 0 {
		return 0
	}
	return round1(float64(k.Payes) / float64(k.Signes) * 100)
}

// FinancialKPIs aggregates quote amounts in cents.
type FinancialKPIs struct {
	CAMensuel   money.Cents `json:"ca_mensuel"`
	CAEncaisse  money.Cents `json:"ca_encaisse"`
	PanierMoyen money.Cents `json:"panier_moyen"`
	CAPotentiel money.Cents `json:"ca_potentiel"`
}

// TopClient is one entry of the signed-amount ranking.
type TopClient struct {
	Rang         int         `json:"rang"`
	Nom          string      `json:"nom"`
	Email        string      `json:"email"`
	Ville        string      `json:"ville,omitempty"`
	NbDevis      int         `json:"nb_devis"`
	MontantTotal money.Cents `json:"montant_total"`
}

// DevisLigne is one quote row of the report detail.
type DevisLigne struct {
	Numero      string      `json:"numero"`
	ClientNom   string      `json:"client_nom"`
	ClientEmail string      `json:"client_email"`
	MontantTTC  money.Cents `json:"montant_ttc"`
	Statut      string      `json:"statut"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Rapport is the fully computed monthly report.
type Rapport struct {
	GenereLe   time.Time     `json:"genere_le"`
	Periode    Periode       `json:"periode"`
	Leads      LeadKPIs      `json:"lead_kpis"`
	Devis      DevisKPIs     `json:"devis_kpis"`
	Finances   FinancialKPIs `json:"financial_kpis"`
	TopClients []TopClient   `json:"top_clients"`
	Detail     []DevisLigne  `json:"devis"`
}

// Record is the persisted summary of a generated report.
type Record struct {
	ID            string      `json:"id"`
	Mois          int         `json:"mois"`
	Annee         int         `json:"annee"`
	URLPDF        string      `json:"url_pdf"`
	NbLeads       int         `json:"nb_leads"`
	NbLeadsGagnes int         `json:"nb_leads_gagnes"`
	NbDevis       int         `json:"nb_devis"`
	NbDevisSignes int         `json:"nb_devis_signes"`
	CAMensuel     money.Cents `json:"ca_mensuel"`
	PanierMoyen   money.Cents `json:"panier_moyen"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Lead statuses counted as won or lost.
var (
	wonLeadStatuts  = map[string]bool{lead.StatutAccepte: true}
	lostLeadStatuts = map[string]bool{lead.StatutPerdu: true, lead.StatutRefuse: true}
)

// Quote statuses: paid counts as signed, expired stays pending.
var (
	paidDevisStatuts    = map[string]bool{devis.StatutPaye: true}
	signedDevisStatuts  = map[string]bool{devis.StatutSigne: true, devis.StatutPaye: true}
	refusedDevisStatuts = map[string]bool{devis.StatutRefuse: true}
)

// ComputeLeadKPIs tallies lead outcomes from the period's statuses.
func ComputeLeadKPIs(statuts []string) LeadKPIs {
	k := LeadKPIs{Total: len(statuts)}
	for _, s := range statuts {
		switch {
		case wonLeadStatuts[s]:
			k.Gagnes++
		case lostLeadStatuts[s]:
			k.Perdus++
		}
	}
	k.EnCours = k.Total - k.Gagnes - k.Perdus
	return k
}

// ComputeDevisKPIs tallies quote outcomes for the period.
func ComputeDevisKPIs(rows []DevisLigne) DevisKPIs {
	k := DevisKPIs{Total: len(rows)}
	for _, d := range rows {
		if signedDevisStatuts[d.Statut] {
			k.Signes++
		}
		if paidDevisStatuts[d.Statut] {
			k.Payes++
		}
		if refusedDevisStatuts[d.Statut] {
			k.Refuses++
		}
	}
	k.EnAttente = k.Total - k.Signes - k.Refuses
	return k
}

// ComputeFinancialKPIs sums quote amounts in cents. The average basket
// covers signed quotes only; potential revenue is everything neither
// signed nor refused.
func ComputeFinancialKPIs(rows []DevisLigne) FinancialKPIs {
	var f FinancialKPIs
	var signes int
	for _, d := range rows {
		switch {
		case signedDevisStatuts[d.Statut]:
			f.CAMensuel += d.MontantTTC
			signes++
			if paidDevisStatuts[d.Statut] {
				f.CAEncaisse += d.MontantTTC
			}
		case refusedDevisStatuts[d.Statut]:
		default:
			f.CAPotentiel += d.MontantTTC
		}
	}
	if signes > 0 {
		f.PanierMoyen = f.CAMensuel / money.Cents(signes)
	}
	return f
}

// ComputeTopClients ranks clients of signed quotes by total amount,
// aggregated by email, keeping the first limit entries.
func ComputeTopClients(rows []DevisLigne, villes map[string]string, limit int) []TopClient {
	agg := map[string]*TopClient{}
	for _, d := range rows {
		if !signedDevisStatuts[d.Statut] {
			continue
		}
		email := strings.ToLower(d.ClientEmail)
		if email == "" {
			continue
		}
		c, ok := agg[email]
		if !ok {
			nom := strings.TrimSpace(d.ClientNom)
			if nom == "" {
				nom = "Client"
			}
			c = &TopClient{Nom: nom, Email: email, Ville: villes[email]}
			agg[email] = c
		}
		c.NbDevis++
		c.MontantTotal += d.MontantTTC
	}

	ranked := make([]TopClient, 0, len(agg))
	for _, c := range agg {
		ranked = append(ranked, *c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MontantTotal != ranked[j].MontantTotal {
			return ranked[i].MontantTotal > ranked[j].MontantTotal
		}
		return ranked[i].Email < ranked[j].Email
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rang = i + 1
	}
	return ranked
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package devis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/money"
	"github.com/toitureai/leadgw/internal/storage"
)

func newTestRepos(t *testing.T) (*Repo, *lead.Repo) {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepo(db), lead.NewRepo(db)
}

func insertLeadAndDevis(t *testing.T, repo *Repo, leads *lead.Repo, email, phone string) (*lead.Lead, *Devis) {
	t.Helper()
	l := &lead.Lead{
		Nom: "Dupont", Prenom: "Marie", Email: email, Telephone: phone,
		TypeProjet: "renovation", Adresse: "12 rue des Lilas", Ville: "Lyon", CodePostal: "69003",
	}
	require.NoError(t, leads.Insert(context.Background(), l))

	d := &Devis{
		Numero:      GenerateNumero(time.Now()),
		LeadID:      l.ID,
		ClientNom:   l.NomComplet(),
		ClientEmail: email,
		Lignes: []Ligne{
			{Designation: "Main d'oeuvre", Quantite: 1, Unite: "forfait", PrixUnitaireHT: 4000, TotalHT: 4000},
		},
		TotalHT:  money.FromEuros(4000),
		TotalTVA: money.FromEuros(400),
		TotalTTC: money.FromEuros(4400),
		TVATaux:  10,
		Validite: time.Now().AddDate(0, 0, 30),
		Statut:   StatutGenere,
		Mode:     ModeBudgetManuel,
	}
	require.NoError(t, repo.Insert(context.Background(), d))
	return l, d
}

func TestDevisInsertAndGet(t *testing.T) {
	repo, leads := newTestRepos(t)
	_, d := insertLeadAndDevis(t, repo, leads, "marie@example.com", "+33612345678")

	got, err := repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Numero, got.Numero)
	assert.Equal(t, money.FromEuros(4400), got.TotalTTC)
	assert.Equal(t, 10.0, got.TVATaux)
	require.Len(t, got.Lignes, 1)
	assert.Equal(t, "Main d'oeuvre", got.Lignes[0].Designation)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDevisListByLead(t *testing.T) {
	repo, leads := newTestRepos(t)
	l, _ := insertLeadAndDevis(t, repo, leads, "marie@example.com", "+33612345678")

	got, err := repo.ListByLead(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = repo.ListByLead(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDevisFindForSigner(t *testing.T) {
	repo, leads := newTestRepos(t)
	_, d1 := insertLeadAndDevis(t, repo, leads, "marie@example.com", "+33611111111")
	_, d2 := insertLeadAndDevis(t, repo, leads, "marie@example.com", "+33622222222")

	// Phone narrows the match when two leads share an email.
	got, err := repo.FindForSigner(context.Background(), "marie@example.com", "+33611111111")
	require.NoError(t, err)
	assert.Equal(t, d1.ID, got.ID)

	got, err = repo.FindForSigner(context.Background(), "marie@example.com", "+33622222222")
	require.NoError(t, err)
	assert.Equal(t, d2.ID, got.ID)

	// Unknown phone falls back to the most recent quote.
	got, err = repo.FindForSigner(context.Background(), "marie@example.com", "+33699999999")
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = repo.FindForSigner(context.Background(), "absent@example.com", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDevisSetStatut(t *testing.T) {
	repo, leads := newTestRepos(t)
	_, d := insertLeadAndDevis(t, repo, leads, "marie@example.com", "+33612345678")

	require.NoError(t, repo.SetStatut(context.Background(), d.ID, StatutSigne))
	got, err := repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatutSigne, got.Statut)

	assert.Error(t, repo.SetStatut(context.Background(), d.ID, "invente"))
	assert.ErrorIs(t, repo.SetStatut(context.Background(), "nope", StatutSigne), ErrNotFound)
}

func TestDevisSetPDF(t *testing.T) {
	repo, leads := newTestRepos(t)
	_, d := insertLeadAndDevis(t, repo, leads, "marie@example.com", "+33612345678")

	require.NoError(t, repo.SetPDF(context.Background(), d.ID, "/docs/devis.pdf", "abcd"))
	got, err := repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "/docs/devis.pdf", got.URLPDF)
	assert.Equal(t, "abcd", got.PDFChecksum)
}

func TestDevisCountByStatut(t *testing.T) {
	repo, leads := newTestRepos(t)
	_, d := insertLeadAndDevis(t, repo, leads, "a@example.com", "+33611111111")
	insertLeadAndDevis(t, repo, leads, "b@example.com", "+33622222222")
	require.NoError(t, repo.SetStatut(context.Background(), d.ID, StatutSigne))

	stats, err := repo.CountByStatut(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ParStatut[StatutSigne])
	assert.Equal(t, 1, stats.ParStatut[StatutGenere])
}

package devis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/storage"
)

type fakeDrafter struct {
	response string
	err      error
}

func (f *fakeDrafter) DraftDevisLines(context.Context, string, int, string, string) (string, error) {
	return f.response, f.err
}

type fakeEnqueuer struct {
	msgs []email.Message
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, _ string, msg email.Message) (string, error) {
	f.msgs = append(f.msgs, msg)
	return "job-1", nil
}

type serviceFixture struct {
	svc      *Service
	leads    *lead.Repo
	repo     *Repo
	enqueuer *fakeEnqueuer
}

func newServiceFixture(t *testing.T, drafter LineDrafter) *serviceFixture {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	leads := lead.NewRepo(db)
	repo := NewRepo(db)
	enq := &fakeEnqueuer{}
	return &serviceFixture{
		svc:      NewService(leads, repo, drafter, files, enq, nil),
		leads:    leads,
		repo:     repo,
		enqueuer: enq,
	}
}

func (f *serviceFixture) insertLead(t *testing.T) *lead.Lead {
	t.Helper()
	l := &lead.Lead{
		Nom: "Dupont", Prenom: "Marie", Email: "marie@example.com",
		Telephone: "+33612345678", TypeProjet: "renovation", Surface: 120,
		Adresse: "12 rue des Lilas", Ville: "Lyon", CodePostal: "69003",
	}
	require.NoError(t, f.leads.Insert(context.Background(), l))
	return l
}

func TestGenerateBudgetMode(t *testing.T) {
	f := newServiceFixture(t, nil)
	l := f.insertLead(t)

	budget := 10000
	_, err := f.leads.Update(context.Background(), l.ID, &lead.Update{BudgetNegocie: &budget})
	require.NoError(t, err)

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)

	assert.Equal(t, ModeBudgetManuel, d.Mode)
	assert.Len(t, d.Lignes, 4)
	assert.Equal(t, StatutEnvoye, d.Statut)
	assert.NotEmpty(t, d.URLPDF)
	assert.NotEmpty(t, d.PDFChecksum)
	assert.Regexp(t, `^DEV-\d{8}-[0-9A-F]{6}$`, d.Numero)

	// 10000 HT at default 20% TVA.
	assert.Equal(t, int64(1000000), int64(d.TotalHT))
	assert.Equal(t, int64(1200000), int64(d.TotalTTC))

	// Quote email queued, lead moved on.
	require.Len(t, f.enqueuer.msgs, 1)
	assert.Contains(t, f.enqueuer.msgs[0].Subject, d.Numero)
	require.Len(t, f.enqueuer.msgs[0].Attachments, 1)

	updated, err := f.leads.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.StatutDevisEnvoye, updated.Statut)
}

func TestGenerateCustomModeWinsOverBudget(t *testing.T) {
	f := newServiceFixture(t, nil)
	l := f.insertLead(t)

	budget := 10000
	custom := []byte(`[{"designation":"Remplacement tuiles","quantite":50,"unite":"m2","prix_unitaire_ht":30}]`)
	_, err := f.leads.Update(context.Background(), l.ID, &lead.Update{
		BudgetNegocie:     &budget,
		LignesDevisCustom: custom,
	})
	require.NoError(t, err)

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)

	assert.Equal(t, ModeCustomManual, d.Mode)
	require.Len(t, d.Lignes, 1)
	assert.Equal(t, 1500.0, d.Lignes[0].TotalHT)
}

func TestGenerateAIMode(t *testing.T) {
	drafter := &fakeDrafter{response: `{"lignes":[{"designation":"Isolation sarking","quantite":120,"unite":"m2","prix_unitaire_ht":95}],"notes":"ok"}`}
	f := newServiceFixture(t, drafter)
	l := f.insertLead(t)

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)

	assert.Equal(t, ModeAI, d.Mode)
	require.Len(t, d.Lignes, 1)
	assert.Equal(t, "Isolation sarking", d.Lignes[0].Designation)
}

func TestGenerateAIModeFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		drafter LineDrafter
	}{
		{"drafter error", &fakeDrafter{err: errors.New("quota exceeded")}},
		{"garbage response", &fakeDrafter{response: "pas de JSON ici"}},
		{"empty lines", &fakeDrafter{response: `{"lignes":[]}`}},
		{"invalid line", &fakeDrafter{response: `{"lignes":[{"designation":"x","quantite":0,"prix_unitaire_ht":0}]}`}},
		{"no drafter", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, tt.drafter)
			l := f.insertLead(t)

			d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
			require.NoError(t, err)
			assert.Equal(t, ModeAI, d.Mode)
			assert.Len(t, d.Lignes, 4, "fallback grid expected")
		})
	}
}

func TestGenerateValidation(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.svc.Generate(context.Background(), GenerateRequest{})
	assert.Error(t, err)

	_, err = f.svc.Generate(context.Background(), GenerateRequest{LeadID: "unknown"})
	assert.Error(t, err)

	l := f.insertLead(t)
	_, err = f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID, Params: Params{TVATaux: 3}})
	assert.Error(t, err)
}

type fakeRequester struct {
	numero string
	phone  string
	err    error
}

func (f *fakeRequester) RequestSignature(_ context.Context, d *Devis, clientPhone string) error {
	f.numero = d.Numero
	f.phone = clientPhone
	return f.err
}

func TestGenerateRequestsSignature(t *testing.T) {
	f := newServiceFixture(t, nil)
	l := f.insertLead(t)

	req := &fakeRequester{}
	f.svc.signatures = req

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)

	assert.Equal(t, d.Numero, req.numero)
	assert.Equal(t, "+33612345678", req.phone)
}

func TestGenerateSurvivesSignatureRequestFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	l := f.insertLead(t)

	f.svc.signatures = &fakeRequester{err: errors.New("docuseal down")}

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)
	assert.Equal(t, StatutEnvoye, d.Statut)
	assert.Len(t, f.enqueuer.msgs, 1)
}

func TestServicePDF(t *testing.T) {
	f := newServiceFixture(t, nil)
	l := f.insertLead(t)

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)

	name, data, err := f.svc.PDF(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Contains(t, name, ".pdf")
	assert.Equal(t, "%PDF", string(data[:4]))

	_, _, err = f.svc.PDF(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkSigned(t *testing.T) {
	f := newServiceFixture(t, nil)
	l := f.insertLead(t)

	budget := 5000
	_, err := f.leads.Update(context.Background(), l.ID, &lead.Update{BudgetNegocie: &budget})
	require.NoError(t, err)

	d, err := f.svc.Generate(context.Background(), GenerateRequest{LeadID: l.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkSigned(context.Background(), d, []byte("%PDF signed")))

	got, err := f.repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatutSigne, got.Statut)
	assert.Contains(t, got.URLPDF, "signe")

	updatedLead, err := f.leads.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.StatutAccepte, updatedLead.Statut)

	// Quote email + signed confirmation.
	assert.Len(t, f.enqueuer.msgs, 2)
}

func TestRenderPDFProducesDocument(t *testing.T) {
	lignes, err := LignesFromBudget(8000)
	require.NoError(t, err)

	d := &Devis{
		Numero:  "DEV-20260115-A1B2C3",
		Lignes:  lignes,
		TVATaux: 10,
	}
	d.ComputeTotals()

	pdf, err := RenderPDF(d, ClientInfo{Nom: "Marie Dupont", Email: "marie@example.com", Adresse: "12 rue des Lilas, 69003 Lyon"})
	require.NoError(t, err)
	assert.True(t, len(pdf) > 500)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

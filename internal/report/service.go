package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/toitureai/leadgw/internal/apperr"
	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/log"
	"github.com/toitureai/leadgw/internal/storage"
)

// Enqueuer queues outgoing email.
type Enqueuer interface {
	Enqueue(ctx context.Context, leadID string, msg email.Message) (string, error)
}

// Service assembles, stores and delivers the monthly report.
type Service struct {
	repo       *Repo
	files      *storage.FileStore
	outbox     Enqueuer
	adminEmail string
	loc        *time.Location
	logger     *slog.Logger

	now func() time.Time
}

func NewService(repo *Repo, files *storage.FileStore, outbox Enqueuer, adminEmail string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:       repo,
		files:      files,
		outbox:     outbox,
		adminEmail: adminEmail,
		loc:        loc,
		logger:     log.WithComponent("report"),
		now:        time.Now,
	}
}

// Generate builds the report for the given month. Zero month and year
// select the previous month. The PDF is stored on disk, the summary
// row is upserted and the report is mailed to the admin.
func (s *Service) Generate(ctx context.Context, month, year int) (*Record, error) {
	if month == 0 || year == 0 {
		month, year = PreviousMonth(s.now(), s.loc)
	}
	periode, err := PeriodeFor(month, year, s.loc)
	if err != nil {
		return nil, apperr.Validation("rapport", "periode", err.Error())
	}
	s.logger.Info("generating monthly report", "periode", periode.Titre())

	statuts, err := s.repo.LeadStatuts(ctx, periode)
	if err != nil {
		return nil, apperr.Database("rapport", "fetch_leads", err)
	}
	devisRows, villes, err := s.repo.DevisRows(ctx, periode)
	if err != nil {
		return nil, apperr.Database("rapport", "fetch_devis", err)
	}

	rapport := &Rapport{
		GenereLe:   s.now().In(s.loc),
		Periode:    periode,
		Leads:      ComputeLeadKPIs(statuts),
		Devis:      ComputeDevisKPIs(devisRows),
		Finances:   ComputeFinancialKPIs(devisRows),
		TopClients: ComputeTopClients(devisRows, villes, 10),
		Detail:     devisRows,
	}

	pdf, err := RenderPDF(rapport)
	if err != nil {
		return nil, apperr.External("rapport", "render_pdf", "report rendering failed", err)
	}
	filename := PDFFilename(month, year)
	path, _, err := s.files.Save(filename, pdf)
	if err != nil {
		return nil, apperr.External("rapport", "store_pdf", "report storage failed", err)
	}

	rec := &Record{
		Mois:          month,
		Annee:         year,
		URLPDF:        path,
		NbLeads:       rapport.Leads.Total,
		NbLeadsGagnes: rapport.Leads.Gagnes,
		NbDevis:       rapport.Devis.Total,
		NbDevisSignes: rapport.Devis.Signes,
		CAMensuel:     rapport.Finances.CAMensuel,
		PanierMoyen:   rapport.Finances.PanierMoyen,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, apperr.Database("rapport", "save", err)
	}

	msg, err := email.MonthlyReport(s.adminEmail, month, year,
		rec.NbLeads, rec.NbLeadsGagnes, rec.NbDevis, rec.NbDevisSignes,
		rec.CAMensuel.String(), pdf, filename)
	if err != nil {
		return nil, apperr.External("rapport", "render_email", "report email rendering failed", err)
	}
	if _, err := s.outbox.Enqueue(ctx, "", msg); err != nil {
		return nil, apperr.Database("rapport", "enqueue_email", err)
	}

	s.logger.Info("monthly report generated",
		"rapport_id", rec.ID, "nb_leads", rec.NbLeads, "nb_devis", rec.NbDevis,
		"ca_mensuel", rec.CAMensuel.String())
	return rec, nil
}

// Repo exposes the underlying store for read endpoints.
func (s *Service) Repo() *Repo { return s.repo }

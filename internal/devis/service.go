package devis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/toitureai/leadgw/internal/apperr"
	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/log"
	"github.com/toitureai/leadgw/internal/storage"
)

// LineDrafter drafts quote lines from project facts. Implemented by the LLM
// client; may be nil, in which case the deterministic fallback is used.
type LineDrafter interface {
	DraftDevisLines(ctx context.Context, typeProjet string, surface int, contraintes, description string) (string, error)
}

// Enqueuer queues outgoing email.
type Enqueuer interface {
	Enqueue(ctx context.Context, leadID string, msg email.Message) (string, error)
}

// SignatureRequester sends a generated quote out for e-signature. May be
// nil, in which case quotes go out by email only.
type SignatureRequester interface {
	RequestSignature(ctx context.Context, d *Devis, clientPhone string) error
}

// Service generates quotes end to end: lines, totals, PDF, storage, record
// and delivery.
type Service struct {
	leads      *lead.Repo
	repo       *Repo
	drafter    LineDrafter
	files      *storage.FileStore
	outbox     Enqueuer
	signatures SignatureRequester
	logger     *slog.Logger
}

func NewService(leads *lead.Repo, repo *Repo, drafter LineDrafter, files *storage.FileStore,
	outbox Enqueuer, signatures SignatureRequester) *Service {
	return &Service{
		leads:      leads,
		repo:       repo,
		drafter:    drafter,
		files:      files,
		outbox:     outbox,
		signatures: signatures,
		logger:     log.WithComponent("devis"),
	}
}

// GenerateRequest is the admin request to produce a quote for a lead.
type GenerateRequest struct {
	LeadID      string `json:"lead_id"`
	Params      Params `json:"params"`
	Contraintes string `json:"contraintes,omitempty"`
}

// Generate produces and delivers the quote. Line sources are tried in
// priority order: admin-stored custom lines, then the negotiated budget
// split, then the LLM draft (with its deterministic fallback).
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Devis, error) {
	const workflow = "devis_generation"

	if req.LeadID == "" {
		return nil, apperr.Validation(workflow, "payload", "lead_id is required")
	}
	if err := req.Params.Validate(); err != nil {
		return nil, apperr.Validation(workflow, "payload", err.Error())
	}

	l, err := s.leads.GetByID(ctx, req.LeadID)
	if err != nil {
		if err == lead.ErrNotFound {
			return nil, apperr.Validation(workflow, "lead", "unknown lead")
		}
		return nil, apperr.Database(workflow, "lead", err)
	}

	lignes, mode, err := s.buildLignes(ctx, l, req.Contraintes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &Devis{
		Numero:      GenerateNumero(now),
		LeadID:      l.ID,
		ClientNom:   l.NomComplet(),
		ClientEmail: l.Email,
		Lignes:      lignes,
		TVATaux:     req.Params.TVATaux,
		Validite:    now.AddDate(0, 0, req.Params.ValiditeJours),
		Statut:      StatutGenere,
		Mode:        mode,
	}
	d.ComputeTotals()
	d.CreatedAt = now

	pdf, err := RenderPDF(d, ClientInfo{
		Nom:     d.ClientNom,
		Email:   d.ClientEmail,
		Adresse: fmt.Sprintf("%s, %s %s", l.Adresse, l.CodePostal, l.Ville),
	})
	if err != nil {
		return nil, apperr.External(workflow, "pdf", "pdf rendering failed", err)
	}

	filename := PDFFilename(d.ClientNom, now)
	path, checksum, err := s.files.Save(filename, pdf)
	if err != nil {
		return nil, apperr.External(workflow, "storage", "pdf storage failed", err)
	}
	d.URLPDF = path
	d.PDFChecksum = checksum

	if err := s.repo.Insert(ctx, d); err != nil {
		return nil, apperr.Database(workflow, "insert", err)
	}

	msg, err := email.Devis(d.ClientNom, d.ClientEmail, d.Numero, d.TotalTTC.String(),
		d.Validite.Format("02/01/2006"), pdf, filename)
	if err != nil {
		return nil, apperr.External(workflow, "email", "email rendering failed", err)
	}
	if _, err := s.outbox.Enqueue(ctx, l.ID, msg); err != nil {
		return nil, apperr.Database(workflow, "outbox", err)
	}

	// The provider mails the signing link itself; a failure here leaves a
	// delivered quote that can still be sent out for signature by hand.
	if s.signatures != nil {
		if err := s.signatures.RequestSignature(ctx, d, l.Telephone); err != nil {
			s.logger.Warn("signature request failed", "devis_id", d.ID, "error", err)
		}
	}

	if err := s.repo.SetStatut(ctx, d.ID, StatutEnvoye); err != nil {
		s.logger.Warn("mark devis envoye failed", "devis_id", d.ID, "error", err)
	} else {
		d.Statut = StatutEnvoye
	}
	if err := s.leads.SetStatut(ctx, l.ID, lead.StatutDevisEnvoye); err != nil {
		s.logger.Warn("mark lead devis_envoye failed", "lead_id", l.ID, "error", err)
	}

	s.logger.Info("devis generated", "devis_id", d.ID, "numero", d.Numero,
		"lead_id", l.ID, "mode", mode, "total_ttc", d.TotalTTC.String())
	return d, nil
}

// buildLignes picks the line source for this lead.
func (s *Service) buildLignes(ctx context.Context, l *lead.Lead, contraintes string) ([]Ligne, string, error) {
	const workflow = "devis_generation"

	rawCustom, _, budgetNegocie, err := s.leads.DevisInputs(ctx, l.ID)
	if err != nil {
		return nil, "", apperr.Database(workflow, "devis_inputs", err)
	}

	if len(rawCustom) > 0 {
		var lignes []Ligne
		if err := json.Unmarshal(rawCustom, &lignes); err != nil {
			return nil, "", apperr.Validation(workflow, "custom_lignes", "stored custom lines are not valid JSON")
		}
		for i := range lignes {
			if err := lignes[i].Validate(); err != nil {
				return nil, "", apperr.Validation(workflow, "custom_lignes", err.Error())
			}
		}
		if len(lignes) > 0 {
			return lignes, ModeCustomManual, nil
		}
	}

	if budgetNegocie > 0 {
		lignes, err := LignesFromBudget(float64(budgetNegocie))
		if err != nil {
			return nil, "", apperr.Validation(workflow, "budget", err.Error())
		}
		return lignes, ModeBudgetManuel, nil
	}

	return s.draftLignes(ctx, l, contraintes), ModeAI, nil
}

// draftLignes asks the LLM and falls back to the fixed grid on any trouble.
func (s *Service) draftLignes(ctx context.Context, l *lead.Lead, contraintes string) []Ligne {
	if s.drafter == nil {
		return FallbackLignes(l.TypeProjet, l.Surface)
	}

	raw, err := s.drafter.DraftDevisLines(ctx, l.TypeProjet, l.Surface, contraintes, l.Description)
	if err != nil {
		s.logger.Warn("line drafting failed, using fallback", "lead_id", l.ID, "error", err)
		return FallbackLignes(l.TypeProjet, l.Surface)
	}

	var parsed struct {
		Lignes []Ligne `json:"lignes"`
		Notes  string  `json:"notes"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed.Lignes) == 0 {
		s.logger.Warn("line draft unusable, using fallback", "lead_id", l.ID)
		return FallbackLignes(l.TypeProjet, l.Surface)
	}

	for i := range parsed.Lignes {
		if err := parsed.Lignes[i].Validate(); err != nil {
			s.logger.Warn("drafted line invalid, using fallback", "lead_id", l.ID, "error", err)
			return FallbackLignes(l.TypeProjet, l.Surface)
		}
	}
	return parsed.Lignes
}

// MarkSigned flips a quote (and its lead) to the signed state and stores the
// executed document.
func (s *Service) MarkSigned(ctx context.Context, d *Devis, signedPDF []byte) error {
	const workflow = "signature_completion"

	filename := fmt.Sprintf("devis-%s-signe.pdf", d.Numero)
	path, checksum, err := s.files.Save(filename, signedPDF)
	if err != nil {
		return apperr.External(workflow, "storage", "signed pdf storage failed", err)
	}
	if err := s.repo.SetPDF(ctx, d.ID, path, checksum); err != nil {
		return apperr.Database(workflow, "set_pdf", err)
	}
	if err := s.repo.SetStatut(ctx, d.ID, StatutSigne); err != nil {
		return apperr.Database(workflow, "set_statut", err)
	}
	if err := s.leads.SetStatut(ctx, d.LeadID, lead.StatutAccepte); err != nil {
		s.logger.Warn("mark lead accepte failed", "lead_id", d.LeadID, "error", err)
	}

	msg, err := email.DevisSigned(d.ClientNom, d.ClientEmail, d.Numero)
	if err != nil {
		return apperr.External(workflow, "email", "email rendering failed", err)
	}
	if _, err := s.outbox.Enqueue(ctx, d.LeadID, msg); err != nil {
		return apperr.Database(workflow, "outbox", err)
	}

	s.logger.Info("devis signed", "devis_id", d.ID, "numero", d.Numero)
	return nil
}

// PDF loads a quote's stored document, verified against the checksum
// recorded at save time. ErrNotFound covers both an unknown quote and a
// quote with no rendered document.
func (s *Service) PDF(ctx context.Context, devisID string) (string, []byte, error) {
	const workflow = "devis_pdf"

	d, err := s.repo.GetByID(ctx, devisID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrNotFound
		}
		return "", nil, apperr.Database(workflow, "get", err)
	}
	if d.URLPDF == "" {
		return "", nil, ErrNotFound
	}

	name := filepath.Base(d.URLPDF)
	data, err := s.files.Read(name, d.PDFChecksum)
	if err != nil {
		return "", nil, apperr.External(workflow, "storage", "stored document unavailable", err)
	}
	return name, data, nil
}

// Repo exposes the underlying repository for read endpoints.
func (s *Service) Repo() *Repo { return s.repo }

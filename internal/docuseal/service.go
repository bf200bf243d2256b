package docuseal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/toitureai/leadgw/internal/apperr"
	"github.com/toitureai/leadgw/internal/devis"
	applog "github.com/toitureai/leadgw/internal/log"
)

// Downloader fetches a signed document by URL.
type Downloader interface {
	DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error)
}

// DevisFinder locates the quote a signer corresponds to.
type DevisFinder interface {
	FindForSigner(ctx context.Context, email, phone string) (*devis.Devis, error)
}

// SignatureMarker applies the signed state to a quote.
type SignatureMarker interface {
	MarkSigned(ctx context.Context, d *devis.Devis, signedPDF []byte) error
}

// Result summarizes how a webhook event was handled.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	DevisID string `json:"devis_id,omitempty"`
}

// Service processes DocuSeal webhook events.
type Service struct {
	finder     DevisFinder
	marker     SignatureMarker
	downloader Downloader
	logger     *slog.Logger
}

// NewService wires the webhook processor.
func NewService(finder DevisFinder, marker SignatureMarker, downloader Downloader) *Service {
	return &Service{
		finder:     finder,
		marker:     marker,
		downloader: downloader,
		logger:     applog.WithComponent("docuseal"),
	}
}

// ProcessEvent handles one webhook payload. Events other than
// submission.completed are acknowledged and ignored.
func (s *Service) ProcessEvent(ctx context.Context, payload *WebhookPayload) (*Result, error) {
	if !payload.IsSignatureCompleted() {
		s.logger.Debug("ignoring docuseal event", "event_type", payload.EventType)
		return &Result{Status: "ignored", Message: "event ignored: " + payload.EventType}, nil
	}

	email := payload.SubmitterEmail()
	if email == "" {
		return nil, apperr.Validation("signature", "extract_submitter", "webhook payload has no submitter email")
	}
	pdfURL := payload.SignedPDFURL()
	if pdfURL == "" {
		return nil, apperr.Validation("signature", "extract_document", "webhook payload has no signed document")
	}

	d, err := s.finder.FindForSigner(ctx, email, payload.SubmitterPhone())
	if err != nil {
		if errors.Is(err, devis.ErrNotFound) {
			return nil, apperr.Validation("signature", "find_devis", "no quote matches signer "+email)
		}
		return nil, apperr.Database("signature", "find_devis", err)
	}

	signedPDF, err := s.downloader.DownloadPDF(ctx, pdfURL)
	if err != nil {
		return nil, apperr.External("signature", "download_pdf", "signed document download failed", err)
	}

	if err := s.marker.MarkSigned(ctx, d, signedPDF); err != nil {
		return nil, err
	}

	s.logger.Info("signature processed", "devis_id", d.ID, "numero", d.Numero, "signer", email)
	return &Result{Status: "success", Message: "signature traitee avec succes", DevisID: d.ID}, nil
}

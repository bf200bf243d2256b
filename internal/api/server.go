// Package api exposes the HTTP surface: lead intake, tracking, quote
// management, e-signature webhooks and reporting.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/toitureai/leadgw/internal/auth"
	"github.com/toitureai/leadgw/internal/devis"
	"github.com/toitureai/leadgw/internal/docuseal"
	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/errlog"
	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/log"
	"github.com/toitureai/leadgw/internal/report"
	"github.com/toitureai/leadgw/internal/signing"
)

// Qualifier scores an incoming lead.
type Qualifier interface {
	QualifyLead(ctx context.Context, l *lead.Lead) lead.Qualification
}

// CaptchaVerifier validates a Turnstile token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// Enqueuer queues outgoing email.
type Enqueuer interface {
	Enqueue(ctx context.Context, leadID string, msg email.Message) (string, error)
	Pending(ctx context.Context) (int, error)
}

// QuoteService generates and signs quotes.
type QuoteService interface {
	Generate(ctx context.Context, req devis.GenerateRequest) (*devis.Devis, error)
	PDF(ctx context.Context, devisID string) (string, []byte, error)
	Repo() *devis.Repo
}

// SignatureService processes DocuSeal webhook events.
type SignatureService interface {
	ProcessEvent(ctx context.Context, payload *docuseal.WebhookPayload) (*docuseal.Result, error)
}

// SubmissionReader fetches a submission from the e-signature provider,
// used to check on a signature that has not come back yet.
type SubmissionReader interface {
	GetSubmission(ctx context.Context, id int) (map[string]any, error)
}

// ReportService generates monthly reports.
type ReportService interface {
	Generate(ctx context.Context, month, year int) (*report.Record, error)
	Repo() *report.Repo
}

// Config holds the HTTP server configuration.
type Config struct {
	Listen         string
	APIKey         string
	WebhookSecret  string
	DocuSealSecret string
	CronSecret     string
	WebsiteURL     string
	APIBaseURL     string
	HotThreshold   int
	AdminEmail     string
}

// Server is the HTTP API server.
type Server struct {
	config      Config
	leads       *lead.Repo
	qualifier   Qualifier
	captcha     CaptchaVerifier
	signer      *signing.Signer
	outbox      Enqueuer
	quotes      QuoteService
	signature   SignatureService
	submissions SubmissionReader
	reports     ReportService
	failures    *errlog.Recorder
	logger      *slog.Logger
	server      *http.Server
	startedAt   time.Time
}

// New wires the server. Any nil optional collaborator (qualifier,
// captcha, signature, submissions, reports) disables the matching behavior.
func New(config Config, leads *lead.Repo, qualifier Qualifier, captcha CaptchaVerifier,
	signer *signing.Signer, outbox Enqueuer, quotes QuoteService,
	signature SignatureService, submissions SubmissionReader,
	reports ReportService, failures *errlog.Recorder) *Server {
	return &Server{
		config:      config,
		leads:       leads,
		qualifier:   qualifier,
		captcha:     captcha,
		signer:      signer,
		outbox:      outbox,
		quotes:      quotes,
		signature:   signature,
		submissions: submissions,
		reports:     reports,
		failures:    failures,
		logger:      log.WithComponent("api"),
		startedAt:   time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.requireSecret("X-Webhook-Secret", s.config.WebhookSecret)).
			Post("/leads/webhook", s.handleLeadWebhook)

		// Tracking endpoints authenticate through the URL signature.
		r.Get("/tracking/track-lead", s.handleTrackLead)

		r.With(s.requireSecret("X-DocuSeal-Secret", s.config.DocuSealSecret)).
			Post("/docuseal/webhook", s.handleDocuSealWebhook)
		r.With(s.requireSecret("X-Webhook-Secret", s.config.WebhookSecret)).
			Get("/docuseal/submission/{submissionID}", s.handleGetSubmission)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret("X-Cron-Secret", s.config.CronSecret))
			r.Post("/rapports/generate", s.handleGenerateReport)
			r.Get("/rapports", s.handleListReports)
			r.Get("/rapports/{annee}/{mois}", s.handleGetReport)
		})

		// Admin surface behind the bearer API key.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.Get("/leads", s.handleListLeads)
			r.Get("/leads/stats/hot", s.handleHotLeads)
			r.Get("/leads/{leadID}", s.handleGetLead)
			r.Patch("/leads/{leadID}", s.handleUpdateLead)
			r.Delete("/leads/{leadID}", s.handleDeleteLead)
			r.Get("/tracking/stats/{leadID}", s.handleTrackingStats)
			r.Post("/devis/generate", s.handleGenerateDevis)
			r.Get("/devis/stats", s.handleDevisStats)
			r.Get("/devis/{devisID}", s.handleGetDevis)
			r.Get("/devis/{devisID}/pdf", s.handleGetDevisPDF)
			r.Get("/devis/lead/{leadID}", s.handleListDevisByLead)
			r.Patch("/devis/{devisID}/statut", s.handleUpdateDevisStatut)
			r.Get("/errors", s.handleRecentErrors)
		})
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireSecret guards a route with a shared-secret header compared in
// constant time.
func (s *Server) requireSecret(header, secret string) func(http.Handler) http.Handler {
	guard := auth.Guard{Header: header, Secret: secret}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guard.Check(r) {
				s.logger.Warn("secret check failed", "header", header, "path", r.URL.Path)
				s.writeError(w, http.StatusUnauthorized, "invalid or missing secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r)
		if err != nil || !auth.Compare(s.config.APIKey, token) {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	pending, err := s.outbox.Pending(r.Context())
	if err != nil {
		s.logger.Error("failed to compute outbox depth", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to compute outbox depth")
		return
	}
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		OutboxPending: pending,
	})
}

// handleRecentErrors serves the latest recorded failures for inspection.
func (s *Server) handleRecentErrors(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.failures.Recent(r.Context(), limit)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []errlog.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

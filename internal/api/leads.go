package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/lead"
)

// clientIP strips the port from RemoteAddr. When RealIP has already
// rewritten it to a bare IP the value passes through unchanged.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// handleLeadWebhook handles POST /api/v1/leads/webhook: the form intake
// pipeline from validation through qualification to delivery.
func (s *Server) handleLeadWebhook(w http.ResponseWriter, r *http.Request) {
	var payload lead.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	l, err := payload.Validate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "donnees invalides: "+err.Error())
		return
	}

	if s.captcha != nil && !s.captcha.Verify(r.Context(), payload.CaptchaToken, clientIP(r)) {
		s.logger.Warn("turnstile verification failed", "email", l.Email)
		s.writeError(w, http.StatusBadRequest, "verification de securite echouee, veuillez rafraichir la page")
		return
	}

	q := s.qualify(r, l)
	l.ScoreIA = q.Score
	l.Urgence = q.Urgence
	l.Recommandation = q.Recommandation
	l.Segments = q.Segments
	l.LeadChaud = q.Score >= s.config.HotThreshold

	if err := s.leads.Insert(r.Context(), l); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.logger.Info("lead registered",
		"lead_id", l.ID, "score", l.ScoreIA, "urgence", l.Urgence, "lead_chaud", l.LeadChaud)

	s.notifyLead(r, l)

	respondJSON(w, http.StatusOK, LeadWebhookResponse{
		Success:   true,
		Message:   "Votre demande a bien ete recue",
		LeadID:    l.ID,
		Score:     l.ScoreIA,
		LeadChaud: l.LeadChaud,
	})
}

func (s *Server) qualify(r *http.Request, l *lead.Lead) lead.Qualification {
	if s.qualifier != nil {
		return s.qualifier.QualifyLead(r.Context(), l)
	}
	q := lead.FallbackQualification()
	q.Score = lead.EstimateScoreSimple(l)
	return q
}

// notifyLead queues the confirmation mail (with tracking links) and the
// team alert. Delivery problems must not fail the intake.
func (s *Server) notifyLead(r *http.Request, l *lead.Lead) {
	clickURL, openURL := s.signer.GenerateTrackingURLs(l.ID, s.config.APIBaseURL)

	if msg, err := email.LeadConfirmation(l, clickURL, openURL); err != nil {
		s.logger.Error("confirmation rendering failed", "lead_id", l.ID, "error", err)
	} else if _, err := s.outbox.Enqueue(r.Context(), l.ID, msg); err != nil {
		s.logger.Error("confirmation enqueue failed", "lead_id", l.ID, "error", err)
	}

	if msg, err := email.TeamAlert(l, s.config.AdminEmail, l.LeadChaud); err != nil {
		s.logger.Error("team alert rendering failed", "lead_id", l.ID, "error", err)
	} else if _, err := s.outbox.Enqueue(r.Context(), l.ID, msg); err != nil {
		s.logger.Error("team alert enqueue failed", "lead_id", l.ID, "error", err)
	}
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	l, err := s.leads.GetByID(r.Context(), chi.URLParam(r, "leadID"))
	if errors.Is(err, lead.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "lead non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	statut := r.URL.Query().Get("statut")
	if statut != "" && !lead.ValidStatuts[statut] {
		s.writeError(w, http.StatusBadRequest, "statut invalide")
		return
	}

	leads, err := s.leads.List(r.Context(), limit, offset, statut)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, leads)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var u lead.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := u.ValidateStatut(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := s.leads.Update(r.Context(), chi.URLParam(r, "leadID"), &u)
	if errors.Is(err, lead.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "lead non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	err := s.leads.Delete(r.Context(), chi.URLParam(r, "leadID"))
	if errors.Is(err, lead.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "lead non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DeleteResponse{Status: "success", Message: "Lead supprime"})
}

func (s *Server) handleHotLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.leads.Hot(r.Context(), s.config.HotThreshold)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, leads)
}

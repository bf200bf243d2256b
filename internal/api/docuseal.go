package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toitureai/leadgw/internal/docuseal"
)

// handleDocuSealWebhook handles POST /api/v1/docuseal/webhook.
func (s *Server) handleDocuSealWebhook(w http.ResponseWriter, r *http.Request) {
	if s.signature == nil {
		s.writeError(w, http.StatusServiceUnavailable, "e-signature integration disabled")
		return
	}

	var payload docuseal.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.EventType == "" {
		s.writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	result, err := s.signature.ProcessEvent(r.Context(), &payload)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleGetSubmission handles GET /api/v1/docuseal/submission/{submissionID},
// a read-through to the provider for checking on a pending signature.
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	if s.submissions == nil {
		s.writeError(w, http.StatusServiceUnavailable, "e-signature integration disabled")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "submissionID"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	submission, err := s.submissions.GetSubmission(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"submission": submission,
	})
}

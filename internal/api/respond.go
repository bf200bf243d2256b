package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toitureai/leadgw/internal/apperr"
)

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// handleServiceError maps a workflow error to an HTTP response and logs
// it to the error log. Internal details stay out of the response body.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if s.failures != nil {
			s.failures.Record(r.Context(), ae)
		}
		msg := ae.Message
		if ae.StatusCode() >= 500 {
			msg = "internal error, the team has been notified"
		}
		s.writeError(w, ae.StatusCode(), msg)
		return
	}
	s.logger.Error("unclassified handler error", "error", err, "path", r.URL.Path)
	if s.failures != nil {
		s.failures.Record(r.Context(), err)
	}
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

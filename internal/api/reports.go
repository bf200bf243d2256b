package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toitureai/leadgw/internal/report"
)

// handleGenerateReport handles POST /api/v1/rapports/generate. An empty
// body or zero month selects the previous month.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.writeError(w, http.StatusServiceUnavailable, "reporting disabled")
		return
	}

	var body struct {
		Mois  int `json:"mois"`
		Annee int `json:"annee"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
	}

	rec, err := s.reports.Generate(r.Context(), body.Mois, body.Annee)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.writeError(w, http.StatusServiceUnavailable, "reporting disabled")
		return
	}
	year, _ := strconv.Atoi(r.URL.Query().Get("annee"))

	list, err := s.reports.Repo().List(r.Context(), year)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.writeError(w, http.StatusServiceUnavailable, "reporting disabled")
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "annee"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "annee invalide")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "mois"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "mois invalide")
		return
	}

	rec, err := s.reports.Repo().GetByPeriod(r.Context(), month, year)
	if errors.Is(err, report.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "rapport non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

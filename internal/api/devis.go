package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toitureai/leadgw/internal/devis"
)

// handleGenerateDevis handles POST /api/v1/devis/generate.
func (s *Server) handleGenerateDevis(w http.ResponseWriter, r *http.Request) {
	var req devis.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.LeadID == "" {
		s.writeError(w, http.StatusBadRequest, "lead_id is required")
		return
	}

	d, err := s.quotes.Generate(r.Context(), req)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleGetDevis(w http.ResponseWriter, r *http.Request) {
	d, err := s.quotes.Repo().GetByID(r.Context(), chi.URLParam(r, "devisID"))
	if errors.Is(err, devis.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "devis non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// handleGetDevisPDF serves the stored quote document, verified against
// its recorded checksum.
func (s *Server) handleGetDevisPDF(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.quotes.PDF(r.Context(), chi.URLParam(r, "devisID"))
	if errors.Is(err, devis.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "devis non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListDevisByLead(w http.ResponseWriter, r *http.Request) {
	list, err := s.quotes.Repo().ListByLead(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateDevisStatut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Statut string `json:"statut"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if !devis.ValidStatuts[body.Statut] {
		s.writeError(w, http.StatusBadRequest, "statut invalide")
		return
	}

	id := chi.URLParam(r, "devisID")
	if err := s.quotes.Repo().SetStatut(r.Context(), id, body.Statut); err != nil {
		if errors.Is(err, devis.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "devis non trouve")
			return
		}
		s.handleServiceError(w, r, err)
		return
	}

	d, err := s.quotes.Repo().GetByID(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDevisStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.quotes.Repo().CountByStatut(r.Context())
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

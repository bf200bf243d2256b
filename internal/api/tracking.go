package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/signing"
)

// transparentPixel is a 1x1 transparent GIF, served on open tracking.
var transparentPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0xFF, 0xFF, 0xFF,
	0x00, 0x00, 0x00, 0x21, 0xF9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3B,
}

const thankYouHTML = `<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Merci ! - ToitureAI</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Helvetica Neue', Arial, sans-serif;
            background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 20px;
        }
        .container {
            background: white;
            border-radius: 20px;
            padding: 50px;
            text-align: center;
            max-width: 500px;
            box-shadow: 0 20px 60px rgba(0,0,0,0.3);
        }
        .icon { font-size: 80px; margin-bottom: 20px; }
        h1 { color: #27ae60; margin-bottom: 20px; font-size: 32px; }
        p { color: #666; font-size: 18px; line-height: 1.6; margin-bottom: 30px; }
        .highlight {
            background: #eafaf1;
            border-left: 4px solid #27ae60;
            padding: 15px 20px;
            border-radius: 8px;
            text-align: left;
            margin: 20px 0;
        }
        .highlight strong { color: #27ae60; }
        .button {
            display: inline-block;
            background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%);
            color: white;
            padding: 15px 40px;
            border-radius: 30px;
            text-decoration: none;
            font-weight: bold;
            font-size: 16px;
        }
        .footer { margin-top: 30px; color: #999; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#9989;</div>
        <h1>Merci pour votre confirmation !</h1>
        <p>
            Votre int&eacute;r&ecirc;t a bien &eacute;t&eacute; enregistr&eacute;. Notre &eacute;quipe vous contactera
            tr&egrave;s prochainement pour discuter de votre projet.
        </p>
        <div class="highlight">
            <strong>Prochaine &eacute;tape :</strong><br>
            Un expert ToitureAI vous appellera sous 24-48h pour planifier
            une visite technique gratuite.
        </div>
        <a href="%s" class="button">Visiter notre site</a>
        <div class="footer">
            ToitureAI - Votre toiture, notre expertise
        </div>
    </div>
</body>
</html>
`

// handleTrackLead handles GET /api/v1/tracking/track-lead. The URL
// signature is the only credential; a broken store still answers with
// the clean pixel or page so the client never sees an error.
func (s *Server) handleTrackLead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	leadID := q.Get("lead_id")
	trackType := q.Get("type")
	sig := q.Get("s")

	if trackType != signing.ActionOpen && trackType != signing.ActionClick {
		s.logger.Warn("invalid tracking type", "type", trackType)
		s.writeError(w, http.StatusBadRequest, "type de tracking invalide")
		return
	}
	if !s.signer.Verify(leadID, trackType, sig) {
		s.logger.Warn("invalid tracking signature", "lead_id", leadID, "type", trackType)
		s.writeError(w, http.StatusForbidden, "signature invalide")
		return
	}

	switch trackType {
	case signing.ActionOpen:
		if err := s.leads.RecordOpen(r.Context(), leadID); err != nil && !errors.Is(err, lead.ErrNotFound) {
			s.logger.Error("open tracking update failed", "lead_id", leadID, "error", err)
		}
		s.writePixel(w)
	case signing.ActionClick:
		if err := s.leads.RecordClick(r.Context(), leadID); err != nil && !errors.Is(err, lead.ErrNotFound) {
			s.logger.Error("click tracking update failed", "lead_id", leadID, "error", err)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, thankYouHTML, s.config.WebsiteURL)
	}
}

func (s *Server) writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Length", strconv.Itoa(len(transparentPixel)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentPixel)
}

// handleTrackingStats handles GET /api/v1/tracking/stats/{leadID}.
func (s *Server) handleTrackingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.leads.Engagement(r.Context(), chi.URLParam(r, "leadID"))
	if errors.Is(err, lead.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "lead non trouve")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

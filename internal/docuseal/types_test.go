package docuseal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPayloadDecode(t *testing.T) {
	raw := `{
		"event_type": "submission.completed",
		"timestamp": "2026-03-02T10:00:00Z",
		"data": {
			"id": 42,
			"submitters": [{"email": "Jean.Dupont@Example.com", "phone": "06 12 34 56 78", "name": "Jean Dupont", "status": "completed"}],
			"documents": [{"url": "https://docuseal.co/signed/abc.pdf", "filename": "devis.pdf"}]
		}
	}`

	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.True(t, p.IsSignatureCompleted())
	assert.Equal(t, "jean.dupont@example.com", p.SubmitterEmail())
	assert.Equal(t, "+33612345678", p.SubmitterPhone())
	assert.Equal(t, "https://docuseal.co/signed/abc.pdf", p.SignedPDFURL())
}

func TestWebhookPayloadEmpty(t *testing.T) {
	p := WebhookPayload{EventType: EventFormViewed}

	assert.False(t, p.IsSignatureCompleted())
	assert.Nil(t, p.FirstSubmitter())
	assert.Empty(t, p.SubmitterEmail())
	assert.Empty(t, p.SubmitterPhone())
	assert.Empty(t, p.SignedPDFURL())
}

func TestSubmitterPhoneNormalization(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"national format", "0612345678", "+33612345678"},
		{"spaces and dots", "06.12.34.56.78", "+33612345678"},
		{"already international", "+33612345678", "+33612345678"},
		{"no leading zero", "612345678", "+33612345678"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := WebhookPayload{Data: SubmissionData{Submitters: []Submitter{{Phone: tt.phone}}}}
			assert.Equal(t, tt.want, p.SubmitterPhone())
		})
	}
}

func TestSubmissionForDevis(t *testing.T) {
	req := SubmissionForDevis(7, "client@example.com", "Jean Dupont", "+33612345678", map[string]string{
		"numero": "DEV-20260302-AB12CD",
	})

	assert.Equal(t, 7, req.TemplateID)
	assert.True(t, req.SendEmail)
	require.Len(t, req.Submitters, 1)
	assert.Equal(t, "Client", req.Submitters[0].Role)
	assert.Equal(t, "client@example.com", req.Submitters[0].Email)
	require.Len(t, req.Fields, 1)
	assert.Equal(t, "DEV-20260302-AB12CD", req.Fields[0].DefaultValue)
}

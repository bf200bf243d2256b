package docuseal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toitureai/leadgw/internal/devis"
	"github.com/toitureai/leadgw/internal/money"
)

func TestCreateSubmission(t *testing.T) {
	var gotAuth string
	var gotBody SubmissionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/submissions", r.URL.Path)
		gotAuth = r.Header.Get("X-Auth-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 123}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	result, err := c.CreateSubmission(context.Background(), SubmissionForDevis(7, "client@example.com", "Jean Dupont", "", nil))
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotAuth)
	assert.Equal(t, 7, gotBody.TemplateID)
	assert.Equal(t, float64(123), result["id"])
}

func TestCreateSubmissionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", srv.URL)
	_, err := c.CreateSubmission(context.Background(), SubmissionRequest{TemplateID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSenderRequestSignature(t *testing.T) {
	var gotBody SubmissionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submissions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id": 55}`))
	}))
	defer srv.Close()

	sender := NewSender(NewClient("test-key", srv.URL), 9)
	d := &devis.Devis{
		Numero:      "DEV-20260115-A1B2C3",
		ClientNom:   "Marie Dupont",
		ClientEmail: "marie@example.com",
		TotalTTC:    money.Cents(132000),
		Validite:    time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sender.RequestSignature(context.Background(), d, "+33612345678"))

	assert.Equal(t, 9, gotBody.TemplateID)
	assert.True(t, gotBody.SendEmail)
	require.Len(t, gotBody.Submitters, 1)
	assert.Equal(t, "marie@example.com", gotBody.Submitters[0].Email)
	assert.Equal(t, "+33612345678", gotBody.Submitters[0].Phone)

	fields := map[string]string{}
	for _, f := range gotBody.Fields {
		fields[f.Name] = f.DefaultValue
	}
	assert.Equal(t, "DEV-20260115-A1B2C3", fields["numero"])
	assert.Equal(t, "14/02/2026", fields["validite"])
	assert.NotEmpty(t, fields["montant"])
}

func TestSenderRequestSignatureAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewSender(NewClient("test-key", srv.URL), 9)
	err := sender.RequestSignature(context.Background(), &devis.Devis{Numero: "DEV-X"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEV-X")
}

func TestGetSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submissions/42", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Auth-Token"))
		w.Write([]byte(`{"id": 42, "status": "completed"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	result, err := c.GetSubmission(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "completed", result["status"])
}

func TestDownloadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 signed"))
	}))
	defer srv.Close()

	c := NewClient("test-key", "")
	data, err := c.DownloadPDF(context.Background(), srv.URL+"/signed.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 signed", string(data))
}

func TestDownloadPDFEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("test-key", "")
	_, err := c.DownloadPDF(context.Background(), srv.URL+"/signed.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

package docuseal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/toitureai/leadgw/internal/devis"
)

// DefaultBaseURL is the hosted DocuSeal API root.
const DefaultBaseURL = "https://api.docuseal.co"

const maxSignedPDFSize = 20 << 20

// Client is a thin DocuSeal API client authenticated with X-Auth-Token.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewClient builds a client for the given API key. An empty baseURL
// falls back to the hosted service.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateSubmission sends a document out for signature and returns the
// raw API response.
func (c *Client) CreateSubmission(ctx context.Context, req SubmissionRequest) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("X-Auth-Token", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("create submission: status %d", resp.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode submission response: %w", err)
	}
	return result, nil
}

// GetSubmission fetches a submission by its DocuSeal id.
func (c *Client) GetSubmission(ctx context.Context, id int) (map[string]any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/submissions/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("X-Auth-Token", c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("get submission: status %d", resp.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode submission response: %w", err)
	}
	return result, nil
}

// DownloadPDF fetches a signed document from the URL carried in a
// webhook payload.
func (c *Client) DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download pdf: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSignedPDFSize))
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download pdf: empty body")
	}
	return data, nil
}

// Sender requests signatures for generated quotes against a fixed
// document template.
type Sender struct {
	client     *Client
	templateID int
}

// NewSender wires a signature requester around the client.
func NewSender(client *Client, templateID int) *Sender {
	return &Sender{client: client, templateID: templateID}
}

// RequestSignature creates a submission for the quote; DocuSeal mails the
// signing link to the client itself.
func (s *Sender) RequestSignature(ctx context.Context, d *devis.Devis, clientPhone string) error {
	req := SubmissionForDevis(s.templateID, d.ClientEmail, d.ClientNom, clientPhone, map[string]string{
		"numero":   d.Numero,
		"montant":  d.TotalTTC.String(),
		"validite": d.Validite.Format("02/01/2006"),
	})
	if _, err := s.client.CreateSubmission(ctx, req); err != nil {
		return fmt.Errorf("request signature for devis %s: %w", d.Numero, err)
	}
	return nil
}

// SubmissionForDevis builds a submission request that sends a quote to
// one client signer, pre-filling the given template fields.
func SubmissionForDevis(templateID int, clientEmail, clientName, clientPhone string, fields map[string]string) SubmissionRequest {
	submitter := SubmitterRequest{
		Email: clientEmail,
		Name:  clientName,
		Phone: clientPhone,
		Role:  "Client",
	}
	req := SubmissionRequest{
		TemplateID: templateID,
		SendEmail:  true,
		Submitters: []SubmitterRequest{submitter},
	}
	for name, value := range fields {
		req.Fields = append(req.Fields, Field{Name: name, DefaultValue: value})
	}
	return req
}

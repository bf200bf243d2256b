// Package docuseal talks to the DocuSeal e-signature API and processes
// its webhook events.
package docuseal

import (
	"regexp"
	"strings"
)

// Event types delivered by DocuSeal webhooks.
const (
	EventSubmissionCreated   = "submission.created"
	EventSubmissionCompleted = "submission.completed"
	EventSubmissionArchived  = "submission.archived"
	EventFormStarted         = "form.started"
	EventFormViewed          = "form.viewed"
	EventFormCompleted       = "form.completed"
)

// Submitter is one signer in a submission payload.
type Submitter struct {
	ID          int    `json:"id,omitempty"`
	UUID        string `json:"uuid,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	Status      string `json:"status,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// Document is a signed document reference returned by DocuSeal.
type Document struct {
	ID       int    `json:"id,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// SubmissionData carries the submission state inside a webhook payload.
type SubmissionData struct {
	ID           int         `json:"id,omitempty"`
	SubmissionID int         `json:"submission_id,omitempty"`
	TemplateID   int         `json:"template_id,omitempty"`
	Status       string      `json:"status,omitempty"`
	Submitters   []Submitter `json:"submitters,omitempty"`
	Documents    []Document  `json:"documents,omitempty"`
	CreatedAt    string      `json:"created_at,omitempty"`
	CompletedAt  string      `json:"completed_at,omitempty"`
}

// WebhookPayload is the full event body DocuSeal posts to the webhook.
type WebhookPayload struct {
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp,omitempty"`
	Data      SubmissionData `json:"data"`
}

// IsSignatureCompleted reports whether the event marks a finished signature.
func (p *WebhookPayload) IsSignatureCompleted() bool {
	return p.EventType == EventSubmissionCompleted
}

// FirstSubmitter returns the first signer, or nil when none is present.
func (p *WebhookPayload) FirstSubmitter() *Submitter {
	if len(p.Data.Submitters) == 0 {
		return nil
	}
	return &p.Data.Submitters[0]
}

// SignedPDFURL returns the download URL of the first signed document.
func (p *WebhookPayload) SignedPDFURL() string {
	if len(p.Data.Documents) == 0 {
		return ""
	}
	return p.Data.Documents[0].URL
}

// SubmitterEmail returns the first signer's email lowercased and trimmed.
func (p *WebhookPayload) SubmitterEmail() string {
	s := p.FirstSubmitter()
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.Email))
}

var phoneStrip = regexp.MustCompile(`[^\d+]`)

// SubmitterPhone returns the first signer's phone normalized to +33 form,
// or "" when the payload carries no phone.
func (p *WebhookPayload) SubmitterPhone() string {
	s := p.FirstSubmitter()
	if s == nil || strings.TrimSpace(s.Phone) == "" {
		return ""
	}
	cleaned := phoneStrip.ReplaceAllString(s.Phone, "")
	if strings.HasPrefix(cleaned, "0") && len(cleaned) >= 10 {
		cleaned = "+33" + cleaned[1:]
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+33" + cleaned
	}
	return cleaned
}

// Field pre-fills a template field when creating a submission.
type Field struct {
	Name         string `json:"name"`
	DefaultValue string `json:"default_value"`
}

// SubmissionRequest is the body for POST /submissions.
type SubmissionRequest struct {
	TemplateID int                `json:"template_id"`
	SendEmail  bool               `json:"send_email"`
	Submitters []SubmitterRequest `json:"submitters"`
	Fields     []Field            `json:"fields,omitempty"`
}

// SubmitterRequest is one signer in a submission-create request.
type SubmitterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

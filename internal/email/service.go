// Package email sends transactional mail through SendGrid. Bodies come from
// the templates in this package; PDF attachments ride along base64-encoded.
package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/toitureai/leadgw/internal/log"
)

// Attachment is a file to attach to an outgoing message.
type Attachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
	MIMEType string `json:"mime_type"`
}

// Message is one outgoing email.
type Message struct {
	ToEmail     string       `json:"to_email"`
	ToName      string       `json:"to_name"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Sender delivers messages. The outbox worker and the workflows depend on
// this interface, not on SendGrid directly.
type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// SendGridSender implements Sender against the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *slog.Logger
}

// NewSendGridSender builds the production sender.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    log.WithComponent("email"),
	}
}

// Send delivers one message and returns the provider message id when the
// response carries one.
func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	m := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	for _, att := range msg.Attachments {
		a := mail.NewAttachment()
		a.SetFilename(att.Filename)
		a.SetType(att.MIMEType)
		a.SetContent(base64.StdEncoding.EncodeToString(att.Content))
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	messageID := ""
	if ids, ok := resp.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}

	s.logger.Info("email sent", "to", msg.ToEmail, "subject", msg.Subject, "message_id", messageID)
	return messageID, nil
}

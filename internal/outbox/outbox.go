// Package outbox queues outgoing email in SQLite and drains it from a
// background worker. Webhook handlers enqueue and return immediately; a
// transient SendGrid failure is retried with backoff instead of being lost.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/log"
)

// Job statuses.
const (
	StatusQueued = "queued"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

const defaultMaxAttempts = 4

// Job is one queued email.
type Job struct {
	ID          string
	LeadID      string
	Message     email.Message
	Attempt     int
	MaxAttempts int
}

// MessageIDRecorder receives the provider message id once a lead-linked
// email has been delivered.
type MessageIDRecorder interface {
	SetSendGridMessageID(ctx context.Context, leadID, messageID string) error
}

// Outbox persists and delivers queued email.
type Outbox struct {
	db       *sql.DB
	sender   email.Sender
	recorder MessageIDRecorder
	interval time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates an outbox. recorder may be nil when no message-id writeback is
// wanted.
func New(db *sql.DB, sender email.Sender, recorder MessageIDRecorder) *Outbox {
	return &Outbox{
		db:       db,
		sender:   sender,
		recorder: recorder,
		interval: 5 * time.Second,
		logger:   log.WithComponent("outbox"),
		stopCh:   make(chan struct{}),
	}
}

// Enqueue stores a message for delivery. leadID may be empty.
func (o *Outbox) Enqueue(ctx context.Context, leadID string, msg email.Message) (string, error) {
	if msg.ToEmail == "" {
		return "", fmt.Errorf("to_email is empty")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = o.db.ExecContext(ctx, `
INSERT INTO outbox(id, lead_id, to_email, subject, payload, status, attempt, max_attempts, created_at)
VALUES(?, ?, ?, ?, ?, ?, 1, ?, ?);
`, id, nullable(leadID), msg.ToEmail, msg.Subject, string(payload), StatusQueued, defaultMaxAttempts, now)
	if err != nil {
		return "", fmt.Errorf("enqueue email: %w", err)
	}
	return id, nil
}

// Start launches the delivery worker.
func (o *Outbox) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		o.logger.Info("outbox worker started", "interval", o.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			case <-ticker.C:
				o.drain(ctx)
			}
		}
	}()
}

// Stop halts the worker and waits for an in-flight send to finish.
func (o *Outbox) Stop() {
	close(o.stopCh)
	o.wg.Wait()
	o.logger.Info("outbox worker stopped")
}

// drain sends every due job, oldest first.
func (o *Outbox) drain(ctx context.Context) {
	for {
		job, err := o.dequeue(ctx)
		if err != nil {
			o.logger.Error("dequeue failed", "error", err)
			return
		}
		if job == nil {
			return
		}
		o.deliver(ctx, job)
	}
}

// dequeue claims the oldest due job. Returns (nil, nil) when the queue is
// empty.
func (o *Outbox) dequeue(ctx context.Context) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	row := o.db.QueryRowContext(ctx, `
SELECT id, lead_id, payload, attempt, max_attempts
FROM outbox
WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
ORDER BY created_at ASC, rowid ASC
LIMIT 1;
`, StatusQueued, now)

	var (
		job     Job
		leadID  sql.NullString
		payload string
	)
	err := row.Scan(&job.ID, &leadID, &payload, &job.Attempt, &job.MaxAttempts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan outbox job: %w", err)
	}
	job.LeadID = leadID.String

	if err := json.Unmarshal([]byte(payload), &job.Message); err != nil {
		// Unparseable payloads can never succeed; park them as failed.
		_ = o.markFailed(ctx, &job, fmt.Sprintf("corrupt payload: %v", err))
		return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
	}
	return &job, nil
}

func (o *Outbox) deliver(ctx context.Context, job *Job) {
	messageID, err := o.sender.Send(ctx, job.Message)
	if err != nil {
		o.retryOrFail(ctx, job, err)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := o.db.ExecContext(ctx, `
UPDATE outbox SET status = ?, sent_at = ? WHERE id = ?;`, StatusSent, now, job.ID); err != nil {
		o.logger.Error("mark sent failed", "job_id", job.ID, "error", err)
	}

	if job.LeadID != "" && messageID != "" && o.recorder != nil {
		if err := o.recorder.SetSendGridMessageID(ctx, job.LeadID, messageID); err != nil {
			o.logger.Warn("record message id failed", "lead_id", job.LeadID, "error", err)
		}
	}
}

func (o *Outbox) retryOrFail(ctx context.Context, job *Job, sendErr error) {
	if job.Attempt >= job.MaxAttempts {
		o.logger.Error("email delivery gave up", "job_id", job.ID, "to", job.Message.ToEmail, "error", sendErr)
		_ = o.markFailed(ctx, job, sendErr.Error())
		return
	}

	backoff := time.Duration(job.Attempt) * time.Minute
	next := time.Now().UTC().Add(backoff).Format(time.RFC3339Nano)
	o.logger.Warn("email delivery failed, will retry", "job_id", job.ID,
		"attempt", job.Attempt, "backoff", backoff, "error", sendErr)

	if _, err := o.db.ExecContext(ctx, `
UPDATE outbox SET attempt = attempt + 1, next_retry_at = ?, last_error = ? WHERE id = ?;`,
		next, sendErr.Error(), job.ID); err != nil {
		o.logger.Error("schedule retry failed", "job_id", job.ID, "error", err)
	}
}

func (o *Outbox) markFailed(ctx context.Context, job *Job, reason string) error {
	_, err := o.db.ExecContext(ctx, `
UPDATE outbox SET status = ?, last_error = ? WHERE id = ?;`, StatusFailed, reason, job.ID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Pending counts jobs still waiting for delivery.
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE status = ?;`, StatusQueued).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

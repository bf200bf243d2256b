// Package errlog persists workflow failures and alerts the admin for
// the ones worth waking someone up over.
package errlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toitureai/leadgw/internal/apperr"
	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/log"
)

// Enqueuer queues outgoing email.
type Enqueuer interface {
	Enqueue(ctx context.Context, leadID string, msg email.Message) (string, error)
}

// Recorder writes failures to the error_log table and queues admin
// alerts for external-service and database errors.
type Recorder struct {
	db         *sql.DB
	outbox     Enqueuer
	adminEmail string
	logger     *slog.Logger
}

func NewRecorder(db *sql.DB, outbox Enqueuer, adminEmail string) *Recorder {
	return &Recorder{
		db:         db,
		outbox:     outbox,
		adminEmail: adminEmail,
		logger:     log.WithComponent("errlog"),
	}
}

// Record logs one failure. Recording must never fail the caller's
// request, so problems here are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, err error) {
	if err == nil {
		return
	}
	ae := apperr.From(err, "unknown")

	r.logger.Error("workflow failure",
		"workflow", ae.Workflow, "step", ae.Step, "kind", string(ae.Kind), "error", ae.Error())

	_, dbErr := r.db.ExecContext(ctx,
		`INSERT INTO error_log (id, workflow, step, kind, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), ae.Workflow, ae.Step, string(ae.Kind), ae.Error(),
		time.Now().UTC().Format(time.RFC3339Nano))
	if dbErr != nil {
		r.logger.Error("error_log insert failed", "error", dbErr)
	}

	if !ae.ShouldAlert() || r.outbox == nil {
		return
	}
	msg, mailErr := email.ErrorAlert(r.adminEmail, ae.Workflow, ae.Step, ae.Error())
	if mailErr != nil {
		r.logger.Error("error alert rendering failed", "error", mailErr)
		return
	}
	if _, qErr := r.outbox.Enqueue(ctx, "", msg); qErr != nil {
		r.logger.Error("error alert enqueue failed", "error", qErr)
	}
}

// Recent returns the latest failures for inspection, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workflow, step, kind, message, created_at FROM error_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query error_log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Workflow, &e.Step, &e.Kind, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan error_log: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Entry is one persisted failure.
type Entry struct {
	ID        string    `json:"id"`
	Workflow  string    `json:"workflow"`
	Step      string    `json:"step"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

package errlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toitureai/leadgw/internal/apperr"
	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/storage"
)

type fakeEnqueuer struct {
	msgs []email.Message
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, leadID string, msg email.Message) (string, error) {
	f.msgs = append(f.msgs, msg)
	return "job-1", nil
}

func newRecorder(t *testing.T) (*Recorder, *fakeEnqueuer) {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	enq := &fakeEnqueuer{}
	return NewRecorder(db, enq, "admin@toitureai.fr"), enq
}

func TestRecordPersistsAndAlerts(t *testing.T) {
	rec, enq := newRecorder(t)
	ctx := context.Background()

	rec.Record(ctx, apperr.External("qualification", "llm_call", "model call failed", errors.New("timeout")))

	entries, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "qualification", entries[0].Workflow)
	assert.Equal(t, "llm_call", entries[0].Step)
	assert.Equal(t, "external_service", entries[0].Kind)

	require.Len(t, enq.msgs, 1)
	assert.Equal(t, "admin@toitureai.fr", enq.msgs[0].ToEmail)
}

func TestRecordValidationDoesNotAlert(t *testing.T) {
	rec, enq := newRecorder(t)
	ctx := context.Background()

	rec.Record(ctx, apperr.Validation("webhook", "payload", "missing email"))

	entries, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Empty(t, enq.msgs)
}

func TestRecordNilIsNoop(t *testing.T) {
	rec, enq := newRecorder(t)

	rec.Record(context.Background(), nil)

	entries, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, enq.msgs)
}

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toitureai/leadgw/internal/report"
)

type fakeRunner struct {
	calls []struct{ month, year int }
	err   error
}

func (f *fakeRunner) Generate(ctx context.Context, month, year int) (*report.Record, error) {
	f.calls = append(f.calls, struct{ month, year int }{month, year})
	if f.err != nil {
		return nil, f.err
	}
	return &report.Record{ID: "rapport-1", Mois: month, Annee: year}, nil
}

type fakeFailures struct {
	errs []error
}

func (f *fakeFailures) Record(ctx context.Context, err error) {
	f.errs = append(f.errs, err)
}

func atTime(s *Scheduler, t time.Time) {
	s.now = func() time.Time { return t }
}

func TestTickFiresInWindow(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, nil, 1, 8, time.UTC)
	atTime(s, time.Date(2026, 8, 1, 8, 15, 0, 0, time.UTC))

	s.tick(context.Background())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, 7, runner.calls[0].month)
	assert.Equal(t, 2026, runner.calls[0].year)
}

func TestTickOutsideWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{"wrong day", time.Date(2026, 8, 2, 8, 0, 0, 0, time.UTC)},
		{"wrong hour", time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := New(runner, nil, 1, 8, time.UTC)
			atTime(s, tt.now)

			s.tick(context.Background())
			assert.Empty(t, runner.calls)
		})
	}
}

func TestTickFiresOncePerPeriod(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, nil, 1, 8, time.UTC)

	atTime(s, time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC))
	s.tick(context.Background())
	atTime(s, time.Date(2026, 8, 1, 8, 30, 0, 0, time.UTC))
	s.tick(context.Background())
	require.Len(t, runner.calls, 1)

	// next month fires again
	atTime(s, time.Date(2026, 9, 1, 8, 5, 0, 0, time.UTC))
	s.tick(context.Background())
	require.Len(t, runner.calls, 2)
	assert.Equal(t, 8, runner.calls[1].month)
}

func TestTickJanuaryTargetsDecember(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, nil, 1, 8, time.UTC)
	atTime(s, time.Date(2027, 1, 1, 8, 0, 0, 0, time.UTC))

	s.tick(context.Background())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, 12, runner.calls[0].month)
	assert.Equal(t, 2026, runner.calls[0].year)
}

func TestTickRecordsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	failures := &fakeFailures{}
	s := New(runner, failures, 1, 8, time.UTC)
	atTime(s, time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC))

	s.tick(context.Background())

	require.Len(t, failures.errs, 1)
	assert.Contains(t, failures.errs[0].Error(), "scheduled report")

	// the failed period is not retried within the same month
	atTime(s, time.Date(2026, 8, 1, 8, 45, 0, 0, time.UTC))
	s.tick(context.Background())
	assert.Len(t, runner.calls, 1)
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, nil, 1, 8, time.UTC)
	atTime(s, time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))

	s.Start(context.Background())
	s.Stop()
	assert.Empty(t, runner.calls)
}

// Package scheduler fires the monthly report on its configured day.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/toitureai/leadgw/internal/log"
	"github.com/toitureai/leadgw/internal/report"
)

// ReportRunner generates the report for one period.
type ReportRunner interface {
	Generate(ctx context.Context, month, year int) (*report.Record, error)
}

// FailureRecorder persists generation failures.
type FailureRecorder interface {
	Record(ctx context.Context, err error)
}

const tickInterval = time.Minute

// Scheduler runs a tick loop and triggers the previous month's report
// once per period, at the configured day and hour.
type Scheduler struct {
	runner   ReportRunner
	failures FailureRecorder
	day      int
	hour     int
	loc      *time.Location
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	lastFired string

	now func() time.Time
}

// New builds a scheduler firing on the given day of month (1-28) at the
// given hour in loc.
func New(runner ReportRunner, failures FailureRecorder, day, hour int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner:   runner,
		failures: failures,
		day:      day,
		hour:     hour,
		loc:      loc,
		logger:   log.WithComponent("scheduler"),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting scheduler", "day", s.day, "hour", s.hour, "tz", s.loc.String())
	s.wg.Add(1)
	go s.tickLoop(ctx)
}

// Stop waits for the loop to exit.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	s.tick(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.loc)
	if !s.due(now) {
		return
	}

	period := now.Format("2006-01")
	s.mu.Lock()
	if s.lastFired == period {
		s.mu.Unlock()
		return
	}
	s.lastFired = period
	s.mu.Unlock()

	month, year := report.PreviousMonth(now, s.loc)
	s.logger.Info("report window reached", "mois", month, "annee", year)

	rec, err := s.runner.Generate(ctx, month, year)
	if err != nil {
		// A failed run still counts as fired for the period. Reruns go
		// through the admin endpoint or the report CLI.
		s.logger.Error("scheduled report failed", "mois", month, "annee", year, "error", err)
		if s.failures != nil {
			s.failures.Record(ctx, fmt.Errorf("scheduled report %d-%02d: %w", year, month, err))
		}
		return
	}
	s.logger.Info("scheduled report generated", "rapport_id", rec.ID)
}

// due reports whether now falls inside the firing window.
func (s *Scheduler) due(now time.Time) bool {
	return now.Day() == s.day && now.Hour() == s.hour
}

package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs retention passes on a cron schedule. Each pass executes
// every enabled policy and then expires overdue export artifacts.
type Scheduler struct {
	engine   *Engine
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for the given engine and cron
// expression.
func NewScheduler(engine *Engine, schedule string) *Scheduler {
	return &Scheduler{
		engine:   engine,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "retention.scheduler"),
	}
}

// Start begins scheduled retention passes.
//
// Common cron expressions:
//   - "0 2 * * *"    - Daily at 2 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
//
// If the schedule is empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("retention schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runPass(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow executes one retention pass immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) []*Report {
	return s.runPass(ctx)
}

// runPass executes one full retention pass.
func (s *Scheduler) runPass(ctx context.Context) []*Report {
	s.logger.Info("starting scheduled retention pass")

	reports := s.engine.ExecuteAll(ctx)
	deleted, errs := 0, 0
	for _, r := range reports {
		deleted += r.ItemsDeleted
		errs += len(r.Errors)
	}

	expired, err := s.engine.ExpireArtifacts(ctx)
	if err != nil {
		s.logger.Error("artifact expiry sweep failed", "error", err)
	}

	s.logger.Info("scheduled retention pass completed",
		"policies_run", len(reports),
		"items_deleted", deleted,
		"artifacts_expired", expired,
		"errors", errs)
	return reports
}

// Stop stops the scheduler and waits for any running pass to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pass time, or nil when nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

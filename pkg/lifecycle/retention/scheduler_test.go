package retention

import (
	"context"
	"testing"
	"time"

	"heirloom-hq/chronicle/pkg/blob"
	"heirloom-hq/chronicle/pkg/lifecycle"
	"heirloom-hq/chronicle/pkg/lifecycle/storage"
)

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	s := NewScheduler(engine, "not a cron expression")
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
		s.Stop()
	}
	if s.IsRunning() {
		t.Error("scheduler must not run after a failed start")
	}
}

func TestScheduler_EmptyScheduleIsNoop(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	s := NewScheduler(engine, "")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("empty schedule should not start the cron loop")
	}
	if s.NextRun() != nil {
		t.Error("no run should be scheduled")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	s := NewScheduler(engine, "0 2 * * *")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}
	next := s.NextRun()
	if next == nil || !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	blobs := blob.NewMemoryStore()
	engine := NewEngine(repo, blobs, nil)

	now := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return now })

	if err := repo.PutProject(ctx, &lifecycle.Project{
		ID: "proj-1", Name: "Grandma Rose", Status: lifecycle.ProjectActive, CreatedAt: now.AddDate(-1, 0, 0),
	}); err != nil {
		t.Fatal(err)
	}
	seedExportRequest(t, repo, "exp-old", "proj-1", now.AddDate(0, -6, 0), "")

	s := NewScheduler(engine, "0 2 * * *")
	reports := s.RunNow(ctx)
	if len(reports) != 4 {
		t.Fatalf("expected a report per default policy, got %d", len(reports))
	}
	var swept bool
	for _, r := range reports {
		if r.Policy == "export-request-cleanup" && r.ItemsDeleted == 1 {
			swept = true
		}
	}
	if !swept {
		t.Error("export-request-cleanup should have deleted the stale request")
	}
}

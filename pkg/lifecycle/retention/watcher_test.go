package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePolicyFile(t *testing.T, path string, days int) {
	t.Helper()
	content := fmt.Sprintf(`policies:
  - name: export-request-cleanup
    retention_period_days: %d
    apply_to_active: true
    apply_to_archived: true
    data_types: [exportRequests]
    enabled: true
`, days)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func exportCleanupDays(e *Engine) int {
	for _, p := range e.Policies() {
		if p.Name == "export-request-cleanup" {
			return p.RetentionPeriodDays
		}
	}
	return -1
}

func TestPolicyWatcher_InitialLoad(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "policies.yaml")
	writePolicyFile(t, path, 45)

	w, err := NewPolicyWatcher(path, engine)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	waitFor(t, func() bool { return exportCleanupDays(engine) == 45 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestPolicyWatcher_ReloadsOnChange(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "policies.yaml")
	writePolicyFile(t, path, 45)

	w, err := NewPolicyWatcher(path, engine)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	waitFor(t, func() bool { return exportCleanupDays(engine) == 45 })

	writePolicyFile(t, path, 14)
	waitFor(t, func() bool { return exportCleanupDays(engine) == 14 })
}

func TestPolicyWatcher_KeepsPoliciesOnBadReload(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "policies.yaml")
	writePolicyFile(t, path, 45)

	w, err := NewPolicyWatcher(path, engine)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	waitFor(t, func() bool { return exportCleanupDays(engine) == 45 })

	if err := os.WriteFile(path, []byte("policies: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := exportCleanupDays(engine); got != 45 {
		t.Errorf("retention period = %d, want previous value 45 after bad reload", got)
	}
}

func TestPolicyWatcher_PendingReloadDroppedOnStop(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "policies.yaml")
	writePolicyFile(t, path, 45)

	w, err := NewPolicyWatcher(path, engine)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(200 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	waitFor(t, func() bool { return exportCleanupDays(engine) == 45 })

	// Change the file, then stop the watcher while the debounce timer is
	// still pending. The reload must not fire after shutdown.
	writePolicyFile(t, path, 14)
	waitFor(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.timer != nil
	})

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := exportCleanupDays(engine); got != 45 {
		t.Errorf("retention period = %d, want 45 untouched after shutdown", got)
	}
}

func TestPolicyWatcher_MissingFileFails(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	w, err := NewPolicyWatcher(filepath.Join(t.TempDir(), "absent.yaml"), engine)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(context.Background()); err == nil {
		t.Error("expected error for missing policy file")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

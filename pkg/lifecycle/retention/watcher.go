package retention

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// filesystem event before reloading, preventing reload storms from
// editors that write in several steps.
const DefaultDebounceInterval = 100 * time.Millisecond

// PolicyWatcher watches the policy override file and hot-reloads it into
// the engine on change.
type PolicyWatcher struct {
	path     string
	engine   *Engine
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// NewPolicyWatcher creates a watcher for the given policy file.
func NewPolicyWatcher(path string, engine *Engine) (*PolicyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &PolicyWatcher{
		path:     path,
		engine:   engine,
		watcher:  watcher,
		logger:   slog.Default().With("component", "retention.watcher"),
		debounce: DefaultDebounceInterval,
	}, nil
}

// SetDebounce overrides the debounce interval (for testing).
func (w *PolicyWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch loads the file once, then blocks watching for changes until the
// context is cancelled. A file that fails to parse on reload is logged
// and the previous policy set stays installed.
func (w *PolicyWatcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.running = false
		w.mu.Unlock()
		w.watcher.Close()
	}()

	if err := w.reload(); err != nil {
		return err
	}

	// Watch the directory rather than the file: editors that replace the
	// file on save would otherwise drop the watch.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}
	w.logger.Info("policy watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("policy watcher error", "error", err)
		}
	}
}

// scheduleReload (re)arms the debounce timer.
func (w *PolicyWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.reload(); err != nil {
			w.logger.Error("policy reload failed, keeping previous policies", "error", err)
		}
	})
}

// reload parses the file and installs the merged policy set.
func (w *PolicyWatcher) reload() error {
	overrides, err := LoadPolicyFile(w.path)
	if err != nil {
		return err
	}
	if err := w.engine.ApplyOverrides(overrides); err != nil {
		return err
	}
	w.logger.Info("retention policies reloaded",
		"path", w.path, "overrides", len(overrides), "policies", len(w.engine.Policies()))
	return nil
}

package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"heirloom-hq/chronicle/pkg/analytics"
	"heirloom-hq/chronicle/pkg/blob"
	"heirloom-hq/chronicle/pkg/lifecycle"
	"heirloom-hq/chronicle/pkg/lifecycle/storage"
	"heirloom-hq/chronicle/pkg/telemetry/metrics"
)

// Report is the operational output of one policy execution.
type Report struct {
	Policy         string    `json:"policy"`
	ExecutedAt     time.Time `json:"executedAt"`
	ItemsProcessed int       `json:"itemsProcessed"`
	ItemsDeleted   int       `json:"itemsDeleted"`
	StorageFreed   int64     `json:"storageFreed"`
	Errors         []string  `json:"errors"`
}

// EngineOptions configures an Engine. The zero value is usable.
type EngineOptions struct {
	// Policies is the initial policy set. Nil means the defaults.
	Policies []Policy

	// Analytics is the event sink the analytics-event sweep clears.
	// Nil disables that sweep.
	Analytics *analytics.Sink

	// Metrics receives per-policy run metrics. Nil disables recording.
	Metrics *metrics.RetentionMetrics
}

// Engine executes retention policies against the repository and the
// blob store.
type Engine struct {
	repo      storage.Repository
	blobs     blob.Store
	analytics *analytics.Sink
	metrics   *metrics.RetentionMetrics
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	policies []Policy
}

// NewEngine creates an Engine. opts may be nil.
func NewEngine(repo storage.Repository, blobs blob.Store, opts *EngineOptions) *Engine {
	if opts == nil {
		opts = &EngineOptions{}
	}
	policies := opts.Policies
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Engine{
		repo:      repo,
		blobs:     blobs,
		analytics: opts.Analytics,
		metrics:   opts.Metrics,
		logger:    slog.Default().With("component", "retention"),
		now:       func() time.Time { return time.Now().UTC() },
		policies:  policies,
	}
}

// SetClock overrides the time source (for testing).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Policies returns a copy of the current policy set.
func (e *Engine) Policies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// SetPolicies replaces the policy set. Every policy must validate.
func (e *Engine) SetPolicies(policies []Policy) error {
	for i := range policies {
		if err := policies[i].Validate(); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.policies = policies
	e.mu.Unlock()
	return nil
}

// ApplyOverrides overlays policies onto the defaults by name and
// installs the result.
func (e *Engine) ApplyOverrides(overrides []Policy) error {
	return e.SetPolicies(MergePolicies(DefaultPolicies(), overrides))
}

// ExecuteAll runs every enabled policy in order. A single policy's
// failure is reflected in its report and never stops the rest.
func (e *Engine) ExecuteAll(ctx context.Context) []*Report {
	policies := e.Policies()
	reports := make([]*Report, 0, len(policies))
	for i := range policies {
		p := policies[i]
		if !p.Enabled {
			continue
		}
		reports = append(reports, e.ExecutePolicy(ctx, p))
	}
	return reports
}

// ExecutePolicy runs one policy: it computes the cutoff and dispatches a
// sweep per data type, aggregating results into a single report.
func (e *Engine) ExecutePolicy(ctx context.Context, p Policy) *Report {
	started := e.now()
	report := &Report{
		Policy:     p.Name,
		ExecutedAt: started,
		Errors:     []string{},
	}
	if err := p.Validate(); err != nil {
		report.Errors = append(report.Errors, err.Error())
		e.record(p.Name, report, started)
		return report
	}

	cutoff := started.AddDate(0, 0, -p.RetentionPeriodDays)
	q := storage.SweepQuery{Cutoff: cutoff, Scope: p.Scope()}
	logger := e.logger.With("policy", p.Name)
	logger.Info("retention policy started", "cutoff", cutoff, "data_types", p.DataTypes)

	for _, dataType := range p.DataTypes {
		switch dataType {
		case DataProjects:
			e.sweepProjects(ctx, q, report, logger)
		case DataStories:
			e.sweepStories(ctx, q, report)
		case DataInteractions:
			e.sweepInteractions(ctx, q, report)
		case DataChapterSummaries:
			e.sweepChapterSummaries(ctx, q, report)
		case DataExportRequests:
			e.sweepExportRequests(ctx, q, report)
		case DataTempFiles:
			e.sweepTempFiles(ctx, cutoff, report)
		case DataAnalyticsEvents:
			e.sweepAnalyticsEvents(cutoff, report)
		}
	}

	logger.Info("retention policy finished",
		"items_processed", report.ItemsProcessed,
		"items_deleted", report.ItemsDeleted,
		"storage_freed", report.StorageFreed,
		"errors", len(report.Errors))
	e.record(p.Name, report, started)
	return report
}

func (e *Engine) record(policy string, report *Report, started time.Time) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if len(report.Errors) > 0 {
		status = "partial_failure"
	}
	e.metrics.RecordRun(policy, status, e.now().Sub(started), report.ItemsDeleted, report.StorageFreed)
}

// deleteBlob removes one blob, best-effort measuring its size first so
// the report can account for freed storage. A missing blob frees zero
// bytes and is not an error.
func (e *Engine) deleteBlob(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, nil
	}
	size, err := e.blobs.Size(ctx, key)
	if err != nil {
		size = 0
	}
	if err := e.blobs.Delete(ctx, key); err != nil {
		return 0, err
	}
	return size, nil
}

func (e *Engine) sweepStories(ctx context.Context, q storage.SweepQuery, report *Report) {
	stories, err := e.repo.ListStoriesBefore(ctx, q)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list stories: %v", err))
		return
	}
	for _, s := range stories {
		report.ItemsProcessed++
		freed := int64(0)
		failed := false
		for _, key := range []string{s.AudioKey, s.PhotoKey} {
			n, err := e.deleteBlob(ctx, key)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("story %s: delete blob %s: %v", s.ID, key, err))
				failed = true
				break
			}
			freed += n
		}
		if failed {
			continue
		}
		if err := e.repo.DeleteStory(ctx, s.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("story %s: %v", s.ID, err))
			continue
		}
		report.ItemsDeleted++
		report.StorageFreed += freed
	}
}

func (e *Engine) sweepInteractions(ctx context.Context, q storage.SweepQuery, report *Report) {
	interactions, err := e.repo.ListInteractionsBefore(ctx, q)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list interactions: %v", err))
		return
	}
	for _, i := range interactions {
		report.ItemsProcessed++
		if err := e.repo.DeleteInteraction(ctx, i.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("interaction %s: %v", i.ID, err))
			continue
		}
		report.ItemsDeleted++
	}
}

func (e *Engine) sweepChapterSummaries(ctx context.Context, q storage.SweepQuery, report *Report) {
	summaries, err := e.repo.ListChapterSummariesBefore(ctx, q)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list chapter summaries: %v", err))
		return
	}
	for _, s := range summaries {
		report.ItemsProcessed++
		if err := e.repo.DeleteChapterSummary(ctx, s.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("chapter summary %s: %v", s.ID, err))
			continue
		}
		report.ItemsDeleted++
	}
}

func (e *Engine) sweepExportRequests(ctx context.Context, q storage.SweepQuery, report *Report) {
	requests, err := e.repo.ListExportRequestsBefore(ctx, q)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list export requests: %v", err))
		return
	}
	for _, req := range requests {
		report.ItemsProcessed++
		freed, err := e.deleteBlob(ctx, req.StorageKey)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("export %s: delete artifact: %v", req.ID, err))
			continue
		}
		if err := e.repo.DeleteExportRequest(ctx, req.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("export %s: %v", req.ID, err))
			continue
		}
		report.ItemsDeleted++
		report.StorageFreed += freed
	}
}

func (e *Engine) sweepTempFiles(ctx context.Context, cutoff time.Time, report *Report) {
	files, err := e.repo.ListTempFilesBefore(ctx, cutoff)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list temp files: %v", err))
		return
	}
	for _, f := range files {
		report.ItemsProcessed++
		freed, err := e.deleteBlob(ctx, f.Key)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("temp file %s: delete blob: %v", f.Key, err))
			continue
		}
		if err := e.repo.DeleteTempFile(ctx, f.Key); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("temp file %s: %v", f.Key, err))
			continue
		}
		report.ItemsDeleted++
		report.StorageFreed += freed
	}
}

// sweepProjects removes each candidate project through the atomic
// cascading purge. One project's failed purge rolls that project back
// entirely and the sweep moves on.
func (e *Engine) sweepProjects(ctx context.Context, q storage.SweepQuery, report *Report, logger *slog.Logger) {
	projects, err := e.repo.ListProjectsBefore(ctx, q)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list projects: %v", err))
		return
	}
	for _, p := range projects {
		report.ItemsProcessed++
		stats, err := e.repo.PurgeProject(ctx, p.ID, e.purgeBlobDeleter())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("project %s: %v", p.ID, err))
			continue
		}
		report.ItemsDeleted++
		report.StorageFreed += stats.StorageFreed
		logger.Info("project purged",
			"project_id", p.ID,
			"rows_deleted", stats.Total(),
			"storage_freed", stats.StorageFreed)
	}
}

// purgeBlobDeleter adapts the blob store to the repository's purge
// callback. Unlike the per-row sweeps, an error here aborts the purge.
func (e *Engine) purgeBlobDeleter() storage.BlobDeleter {
	return func(ctx context.Context, keys []string) (int64, error) {
		var freed int64
		for _, key := range keys {
			n, err := e.deleteBlob(ctx, key)
			if err != nil {
				return freed, err
			}
			freed += n
		}
		return freed, nil
	}
}

func (e *Engine) sweepAnalyticsEvents(cutoff time.Time, report *Report) {
	if e.analytics == nil {
		return
	}
	cleared := e.analytics.ClearBefore(cutoff)
	report.ItemsProcessed += cleared
	report.ItemsDeleted += cleared
}

// ExpireArtifacts transitions ready exports whose expiry has passed to
// expired, removing the stored artifact and clearing the download URL.
// It returns the number of exports expired.
func (e *Engine) ExpireArtifacts(ctx context.Context) (int, error) {
	requests, err := e.repo.ListExpiredExports(ctx, e.now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, req := range requests {
		if _, err := e.deleteBlob(ctx, req.StorageKey); err != nil {
			e.logger.Warn("failed to delete expired artifact",
				"export_id", req.ID, "key", req.StorageKey, "error", err)
			continue
		}
		if err := e.repo.MarkExportExpired(ctx, req.ID); err != nil {
			if lifecycle.IsNotFound(err) {
				continue
			}
			e.logger.Warn("failed to mark export expired", "export_id", req.ID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		e.logger.Info("expired export artifacts", "count", expired)
	}
	return expired, nil
}

package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"heirloom-hq/chronicle/pkg/analytics"
	"heirloom-hq/chronicle/pkg/blob"
	"heirloom-hq/chronicle/pkg/lifecycle"
	"heirloom-hq/chronicle/pkg/lifecycle/builder"
	"heirloom-hq/chronicle/pkg/lifecycle/storage"
	"heirloom-hq/chronicle/pkg/telemetry/metrics"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultArtifactTTL    = 30 * 24 * time.Hour
	DefaultConflictWindow = time.Hour
	DefaultKeyPrefix      = "exports"
)

// Options configures an Orchestrator. The zero value is usable.
type Options struct {
	// ArtifactTTL is how long a ready artifact stays downloadable.
	ArtifactTTL time.Duration

	// ConflictWindow is the lookback window of the concurrency guard.
	ConflictWindow time.Duration

	// KeyPrefix is prepended to artifact storage keys.
	KeyPrefix string

	// Notifier receives ready notifications. Nil means none are sent.
	Notifier Notifier

	// Analytics receives pipeline events. Nil disables emission.
	Analytics *analytics.Sink

	// Metrics receives pipeline metrics. Nil disables recording.
	Metrics *metrics.ExportMetrics
}

// Orchestrator owns the export request lifecycle: synchronous creation
// checks, the detached pipeline, and the read-side status operations.
type Orchestrator struct {
	repo      storage.Repository
	blobs     blob.Store
	builder   *builder.Builder
	notifier  Notifier
	analytics *analytics.Sink
	metrics   *metrics.ExportMetrics
	logger    *slog.Logger
	tracer    trace.Tracer

	ttl       time.Duration
	window    time.Duration
	keyPrefix string
	now       func() time.Time

	// leases closes the race the windowed guard query admits between two
	// near-simultaneous creates on this node.
	mu     sync.Mutex
	leases map[string]struct{}

	wg sync.WaitGroup
}

// New creates an Orchestrator. opts may be nil.
func New(repo storage.Repository, blobs blob.Store, opts *Options) *Orchestrator {
	if opts == nil {
		opts = &Options{}
	}
	o := &Orchestrator{
		repo:      repo,
		blobs:     blobs,
		builder:   builder.New(blobs),
		notifier:  opts.Notifier,
		analytics: opts.Analytics,
		metrics:   opts.Metrics,
		logger:    slog.Default().With("component", "exporter"),
		tracer:    otel.Tracer("heirloom-hq/chronicle/exporter"),
		ttl:       opts.ArtifactTTL,
		window:    opts.ConflictWindow,
		keyPrefix: opts.KeyPrefix,
		now:       func() time.Time { return time.Now().UTC() },
		leases:    make(map[string]struct{}),
	}
	if o.ttl == 0 {
		o.ttl = DefaultArtifactTTL
	}
	if o.window == 0 {
		o.window = DefaultConflictWindow
	}
	if o.keyPrefix == "" {
		o.keyPrefix = DefaultKeyPrefix
	}
	return o
}

// SetClock overrides the time source (for testing).
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Wait blocks until every launched pipeline has finished (for testing).
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// CreateExport validates the request, persists it in the queued state,
// launches the pipeline as a detached background task, and returns the
// new export id. All failures here are synchronous; nothing is persisted
// on a failed create.
func (o *Orchestrator) CreateExport(ctx context.Context, projectID, facilitatorID string, options lifecycle.ExportOptions) (string, error) {
	if err := options.Validate(); err != nil {
		return "", err
	}

	if _, err := o.repo.GetProject(ctx, projectID); err != nil {
		return "", err
	}
	hasRole, err := o.repo.HasProjectRole(ctx, projectID, facilitatorID)
	if err != nil {
		return "", err
	}
	if !hasRole {
		return "", lifecycle.NewAccessDeniedError(projectID, facilitatorID)
	}

	now := o.now()
	leaseKey := projectID + "/" + facilitatorID

	o.mu.Lock()
	if _, held := o.leases[leaseKey]; held {
		o.mu.Unlock()
		return "", lifecycle.NewConflictError(projectID, facilitatorID, "")
	}
	existing, err := o.repo.FindActiveExport(ctx, projectID, facilitatorID, now.Add(-o.window))
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	if existing != nil {
		o.mu.Unlock()
		return "", lifecycle.NewConflictError(projectID, facilitatorID, existing.ID)
	}
	o.leases[leaseKey] = struct{}{}
	o.mu.Unlock()

	req := &lifecycle.ExportRequest{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		FacilitatorID: facilitatorID,
		Status:        lifecycle.ExportQueued,
		Options:       options,
		CurrentStep:   "Queued",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.repo.CreateExportRequest(ctx, req); err != nil {
		o.releaseLease(leaseKey)
		return "", err
	}

	o.emit("export_requested", map[string]any{
		"export_id":      req.ID,
		"project_id":     projectID,
		"facilitator_id": facilitatorID,
		"format":         string(options.Format),
	})
	o.logger.Info("export queued",
		"export_id", req.ID, "project_id", projectID, "facilitator_id", facilitatorID,
		"format", options.Format)

	// Detached: the pipeline's outcome is never awaited by this caller
	// and survives the caller's context.
	o.wg.Add(1)
	go o.runPipeline(context.WithoutCancel(ctx), req, leaseKey)

	return req.ID, nil
}

// Status is the point-in-time view of one export request.
type Status struct {
	ID          string                   `json:"id"`
	Status      lifecycle.ExportStatus   `json:"status"`
	DownloadURL string                   `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time               `json:"expiresAt,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
	Progress    lifecycle.ExportProgress `json:"progress"`
}

// GetStatus returns the current state of an export request.
func (o *Orchestrator) GetStatus(ctx context.Context, exportID string) (*Status, error) {
	req, err := o.repo.GetExportRequest(ctx, exportID)
	if err != nil {
		return nil, err
	}
	return &Status{
		ID:          req.ID,
		Status:      req.Status,
		DownloadURL: req.DownloadURL,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
		Progress: lifecycle.ExportProgress{
			Status:           req.Status,
			Progress:         req.Progress,
			CurrentStep:      req.CurrentStep,
			TotalSteps:       len(pipelineSteps),
			CurrentStepIndex: stepIndexFor(req.Progress),
			Error:            req.Error,
		},
	}, nil
}

// Summary is one row of a project's export listing.
type Summary struct {
	ID          string                 `json:"id"`
	Status      lifecycle.ExportStatus `json:"status"`
	DownloadURL string                 `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time             `json:"expiresAt,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// ListExports returns a project's export requests, newest first.
func (o *Orchestrator) ListExports(ctx context.Context, projectID string) ([]Summary, error) {
	requests, err := o.repo.ListExportRequests(ctx, projectID)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(requests))
	for _, req := range requests {
		summaries = append(summaries, Summary{
			ID:          req.ID,
			Status:      req.Status,
			DownloadURL: req.DownloadURL,
			ExpiresAt:   req.ExpiresAt,
			CreatedAt:   req.CreatedAt,
		})
	}
	return summaries, nil
}

// DeleteExport removes an export request and, best-effort, its stored
// artifact. A blob delete failure is logged but never blocks removal of
// the row.
func (o *Orchestrator) DeleteExport(ctx context.Context, exportID string) error {
	req, err := o.repo.GetExportRequest(ctx, exportID)
	if err != nil {
		return err
	}
	if req.StorageKey != "" {
		if err := o.blobs.Delete(ctx, req.StorageKey); err != nil {
			o.logger.Warn("artifact delete failed",
				"export_id", exportID, "key", req.StorageKey, "error", err)
		}
	}
	return o.repo.DeleteExportRequest(ctx, exportID)
}

// artifactKey derives the deterministic storage key for an export.
func (o *Orchestrator) artifactKey(req *lifecycle.ExportRequest) string {
	base := "archival-export-" + req.ID
	if req.Options.CustomName != "" {
		base = builder.SanitizeFileName(req.Options.CustomName)
	}
	return fmt.Sprintf("%s/%s/%s.%s", o.keyPrefix, req.ProjectID, base, req.Options.Format.Extension())
}

func (o *Orchestrator) releaseLease(key string) {
	o.mu.Lock()
	delete(o.leases, key)
	o.mu.Unlock()
}

func (o *Orchestrator) emit(name string, props map[string]any) {
	if o.analytics != nil {
		o.analytics.Emit(name, props)
	}
}

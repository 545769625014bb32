package exporter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"heirloom-hq/chronicle/pkg/lifecycle"
	"heirloom-hq/chronicle/pkg/lifecycle/builder"
	"heirloom-hq/chronicle/pkg/lifecycle/storage"
)

// pipelineStep is one fixed stage of the export pipeline with its
// progress weight.
type pipelineStep struct {
	name     string
	progress int
}

// The seven pipeline stages. Building maps its sub-progress into the
// 60-80 band; finalize lands at 95 and MarkExportReady closes at 100.
var pipelineSteps = []pipelineStep{
	{"Initializing", 0},
	{"Validating access", 10},
	{"Collecting stories", 25},
	{"Downloading media", 40},
	{"Building artifact", 60},
	{"Uploading artifact", 85},
	{"Finalizing", 95},
}

const (
	buildProgressStart = 60
	buildProgressEnd   = 80
)

// stepIndexFor maps a persisted progress value back to a step index.
func stepIndexFor(progress int) int {
	index := 0
	for i, s := range pipelineSteps {
		if progress >= s.progress {
			index = i
		}
	}
	return index
}

// runPipeline executes the seven stages of one export. It runs detached:
// every failure is persisted as status=failed and logged, never returned
// to anyone.
func (o *Orchestrator) runPipeline(ctx context.Context, req *lifecycle.ExportRequest, leaseKey string) {
	defer o.wg.Done()
	defer o.releaseLease(leaseKey)

	if o.metrics != nil {
		o.metrics.PipelineStarted()
		defer o.metrics.PipelineFinished()
	}

	ctx, span := o.tracer.Start(ctx, "chronicle.export.pipeline")
	defer span.End()
	span.SetAttributes(
		attribute.String("export.id", req.ID),
		attribute.String("export.project_id", req.ProjectID),
		attribute.String("export.format", string(req.Options.Format)),
	)

	logger := o.logger.With("export_id", req.ID, "project_id", req.ProjectID)
	started := o.now()

	fail := func(stage string, err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		logger.Error("export pipeline failed", "stage", stage, "error", err)
		if markErr := o.repo.MarkExportFailed(ctx, req.ID, err.Error()); markErr != nil {
			logger.Error("failed to persist export failure", "error", markErr)
		}
		if o.metrics != nil {
			o.metrics.RecordExport(string(req.Options.Format), "failed", o.now().Sub(started), 0)
		}
	}

	advance := func(step int) error {
		s := pipelineSteps[step]
		return o.repo.UpdateExportProgress(ctx, req.ID, lifecycle.ExportProcessing, s.progress, s.name)
	}

	// Step 1: initializing.
	if err := advance(0); err != nil {
		fail("initialize", err)
		return
	}

	// Step 2: re-validate access. The project can vanish between create
	// and pipeline start.
	if err := advance(1); err != nil {
		fail("validate", err)
		return
	}
	project, err := o.repo.GetProject(ctx, req.ProjectID)
	if err != nil {
		fail("validate", err)
		return
	}

	// Step 3: collect data.
	if err := advance(2); err != nil {
		fail("collect", err)
		return
	}
	input, err := o.collect(ctx, req, project)
	if err != nil {
		fail("collect", err)
		return
	}

	// Step 4: media prefetch placeholder. Downloads happen lazily inside
	// the builder.
	if err := advance(3); err != nil {
		fail("download", err)
		return
	}

	// Step 5: build, mapping sub-progress into the 60-80 band.
	if err := advance(4); err != nil {
		fail("build", err)
		return
	}
	result, err := o.builder.Build(ctx, input, func(fraction float64) {
		p := buildProgressStart + int(fraction*float64(buildProgressEnd-buildProgressStart))
		if err := o.repo.UpdateExportProgress(ctx, req.ID, lifecycle.ExportProcessing, p, pipelineSteps[4].name); err != nil {
			logger.Warn("failed to persist build progress", "error", err)
		}
	})
	if err != nil {
		fail("build", err)
		return
	}
	if result.SkippedFiles > 0 {
		logger.Warn("export built with missing media", "skipped_files", result.SkippedFiles)
	}

	// Step 6: upload.
	if err := advance(5); err != nil {
		fail("upload", err)
		return
	}
	key := o.artifactKey(req)
	downloadURL, err := o.blobs.Put(ctx, key, result.Data, result.ContentType)
	if err != nil {
		fail("upload", err)
		return
	}

	// Step 7: finalize.
	if err := advance(6); err != nil {
		fail("finalize", err)
		return
	}
	expiresAt := o.now().Add(o.ttl)
	if err := o.repo.MarkExportReady(ctx, req.ID, key, downloadURL, expiresAt); err != nil {
		fail("finalize", err)
		return
	}

	duration := o.now().Sub(started)
	if o.metrics != nil {
		o.metrics.RecordExport(string(req.Options.Format), "ready", duration, len(result.Data))
	}
	o.emit("export_completed", map[string]any{
		"export_id":     req.ID,
		"project_id":    req.ProjectID,
		"format":        string(req.Options.Format),
		"size_bytes":    len(result.Data),
		"duration_ms":   duration.Milliseconds(),
		"story_count":   result.Manifest.ExportInfo.StoryCount,
		"skipped_files": result.SkippedFiles,
	})
	logger.Info("export ready",
		"key", key, "size_bytes", len(result.Data),
		"duration", duration, "expires_at", expiresAt)

	if req.Options.NotifyOnComplete && o.notifier != nil {
		ready, err := o.repo.GetExportRequest(ctx, req.ID)
		if err == nil {
			if err := o.notifier.ExportReady(ctx, ready); err != nil {
				logger.Warn("ready notification failed", "error", err)
			}
		}
	}
}

// collect gathers the project snapshot the builder consumes, applying
// the option filters at the query level.
func (o *Orchestrator) collect(ctx context.Context, req *lifecycle.ExportRequest, project *lifecycle.Project) (*builder.Input, error) {
	var filter *storage.StoryFilter
	if req.Options.DateRange != nil || len(req.Options.Chapters) > 0 {
		filter = &storage.StoryFilter{
			DateRange:  req.Options.DateRange,
			ChapterIDs: req.Options.Chapters,
		}
	}

	stories, err := o.repo.ListStories(ctx, req.ProjectID, filter)
	if err != nil {
		return nil, err
	}
	chapters, err := o.repo.ListChapters(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	input := &builder.Input{
		ExportID: req.ID,
		Project:  project,
		Chapters: chapters,
		Stories:  stories,
		Options:  req.Options,
	}
	if req.Options.IncludeInteractions {
		input.Interactions, err = o.repo.ListInteractions(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
	}
	if req.Options.IncludeChapterSummaries {
		input.Summaries, err = o.repo.ListChapterSummaries(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
	}
	return input, nil
}

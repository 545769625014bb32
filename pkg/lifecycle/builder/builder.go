package builder

import (
	"context"
	"log/slog"
	"time"

	"heirloom-hq/chronicle/pkg/blob"
	"heirloom-hq/chronicle/pkg/lifecycle"
)

// Input is the project snapshot an artifact is built from. The
// orchestrator collects it up front; the builder itself only reads the
// blob store (for media downloads and the storage-usage query).
type Input struct {
	ExportID     string
	Project      *lifecycle.Project
	Chapters     []*lifecycle.Chapter
	Stories      []*lifecycle.Story
	Interactions []*lifecycle.Interaction
	Summaries    []*lifecycle.ChapterSummary
	Options      lifecycle.ExportOptions
}

// Result is the built artifact.
type Result struct {
	Data        []byte
	ContentType string
	Manifest    *Manifest

	// SkippedFiles counts media files omitted because their download
	// failed.
	SkippedFiles int
}

// ProgressFunc receives build sub-progress in [0,1]. May be nil.
type ProgressFunc func(fraction float64)

// Builder assembles export artifacts.
type Builder struct {
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Builder over the given blob store.
func New(blobs blob.Store) *Builder {
	return &Builder{
		blobs:  blobs,
		logger: slog.Default().With("component", "builder"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source (for testing).
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// Build produces the artifact for the requested format. Options are
// assumed valid; the orchestrator validates them before anything is
// persisted.
func (b *Builder) Build(ctx context.Context, in *Input, progress ProgressFunc) (*Result, error) {
	if in.Options.Format == lifecycle.FormatDocument {
		return b.buildDocument(ctx, in, progress)
	}
	return b.buildArchive(ctx, in, progress)
}

// chapterNames maps chapter id to sanitized folder name. Stories without
// a chapter land in the fixed "uncategorized" folder.
func chapterNames(chapters []*lifecycle.Chapter) map[string]string {
	names := make(map[string]string, len(chapters))
	for _, c := range chapters {
		names[c.ID] = SanitizeFileName(c.Name)
	}
	return names
}

func reportProgress(progress ProgressFunc, fraction float64) {
	if progress != nil {
		progress(fraction)
	}
}

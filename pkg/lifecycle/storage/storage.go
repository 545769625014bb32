package storage

import (
	"context"
	"time"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// StoryFilter restricts story reads during export collection.
type StoryFilter struct {
	// DateRange, when set, keeps only stories recorded within the range.
	DateRange *lifecycle.DateRange

	// ChapterIDs, when non-empty, keeps only stories in the listed
	// chapters.
	ChapterIDs []string
}

// SweepQuery selects retention sweep candidates: rows created before the
// cutoff whose parent project falls inside the scope. Rows whose parent
// project no longer exists are always candidates (orphan cleanup).
type SweepQuery struct {
	Cutoff time.Time
	Scope  lifecycle.Scope
}

// BlobDeleter is invoked by PurgeProject with the blob keys belonging to
// rows about to be deleted. It returns the bytes freed. Returning an error
// aborts the purge and rolls back the enclosing transaction.
type BlobDeleter func(ctx context.Context, keys []string) (int64, error)

// PurgeStats counts the rows removed by one cascading purge.
type PurgeStats struct {
	Interactions     int
	ChapterSummaries int
	Stories          int
	Chapters         int
	ExportRequests   int
	Roles            int
	Subscriptions    int
	Invitations      int

	// StorageFreed is the summed size of blobs the BlobDeleter removed.
	StorageFreed int64
}

// Total returns the number of child rows deleted, excluding the project
// row itself.
func (s *PurgeStats) Total() int {
	return s.Interactions + s.ChapterSummaries + s.Stories + s.Chapters +
		s.ExportRequests + s.Roles + s.Subscriptions + s.Invitations
}

// Repository is the persistence boundary of the lifecycle subsystem. It
// covers the export request lifecycle, the reads the archive builder
// needs, and the deletes the retention engine performs.
type Repository interface {
	// Projects and membership.
	GetProject(ctx context.Context, id string) (*lifecycle.Project, error)
	PutProject(ctx context.Context, p *lifecycle.Project) error
	ListProjectsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Project, error)
	HasProjectRole(ctx context.Context, projectID, userID string) (bool, error)
	PutProjectRole(ctx context.Context, r *lifecycle.ProjectRole) error
	PutSubscription(ctx context.Context, s *lifecycle.Subscription) error
	PutInvitation(ctx context.Context, i *lifecycle.Invitation) error

	// Chapters, stories, interactions, and summaries.
	PutChapter(ctx context.Context, c *lifecycle.Chapter) error
	ListChapters(ctx context.Context, projectID string) ([]*lifecycle.Chapter, error)
	PutStory(ctx context.Context, s *lifecycle.Story) error
	ListStories(ctx context.Context, projectID string, filter *StoryFilter) ([]*lifecycle.Story, error)
	ListStoriesBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Story, error)
	DeleteStory(ctx context.Context, id string) error
	PutInteraction(ctx context.Context, i *lifecycle.Interaction) error
	ListInteractions(ctx context.Context, projectID string) ([]*lifecycle.Interaction, error)
	ListInteractionsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Interaction, error)
	DeleteInteraction(ctx context.Context, id string) error
	PutChapterSummary(ctx context.Context, s *lifecycle.ChapterSummary) error
	ListChapterSummaries(ctx context.Context, projectID string) ([]*lifecycle.ChapterSummary, error)
	ListChapterSummariesBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.ChapterSummary, error)
	DeleteChapterSummary(ctx context.Context, id string) error

	// Temp files.
	PutTempFile(ctx context.Context, f *lifecycle.TempFile) error
	ListTempFilesBefore(ctx context.Context, cutoff time.Time) ([]*lifecycle.TempFile, error)
	DeleteTempFile(ctx context.Context, key string) error

	// Export requests.
	CreateExportRequest(ctx context.Context, r *lifecycle.ExportRequest) error
	GetExportRequest(ctx context.Context, id string) (*lifecycle.ExportRequest, error)
	ListExportRequests(ctx context.Context, projectID string) ([]*lifecycle.ExportRequest, error)

	// FindActiveExport returns a queued or processing export for the pair
	// created at or after since, or nil when none exists. This is the
	// advisory concurrency guard's windowed query.
	FindActiveExport(ctx context.Context, projectID, facilitatorID string, since time.Time) (*lifecycle.ExportRequest, error)

	// UpdateExportProgress persists a pipeline step transition.
	UpdateExportProgress(ctx context.Context, id string, status lifecycle.ExportStatus, progress int, step string) error

	// MarkExportReady finalizes a successful export. DownloadURL and
	// ExpiresAt become non-null together with the ready status.
	MarkExportReady(ctx context.Context, id, storageKey, downloadURL string, expiresAt time.Time) error

	// MarkExportFailed records a pipeline failure.
	MarkExportFailed(ctx context.Context, id, message string) error

	// MarkExportExpired transitions a ready export to expired, clearing
	// its download URL.
	MarkExportExpired(ctx context.Context, id string) error

	ListExportRequestsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.ExportRequest, error)

	// ListExpiredExports returns ready exports whose ExpiresAt has passed.
	ListExpiredExports(ctx context.Context, now time.Time) ([]*lifecycle.ExportRequest, error)

	DeleteExportRequest(ctx context.Context, id string) error

	// PurgeProject atomically deletes a project and everything that
	// references it. See the package documentation for ordering and
	// rollback semantics.
	PurgeProject(ctx context.Context, projectID string, deleteBlobs BlobDeleter) (*PurgeStats, error)

	// Close releases resources held by the backend.
	Close() error
}

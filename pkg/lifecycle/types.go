package lifecycle

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectActive is a project with recording and commenting enabled.
	ProjectActive ProjectStatus = "active"
	// ProjectArchived is a read-mostly project entered after subscription
	// lapse or explicit cancellation.
	ProjectArchived ProjectStatus = "archived"
)

// Project is a family's story-collection workspace.
type Project struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	StorytellerID string        `json:"storytellerId"`
	Status        ProjectStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	// ArchivedAt is set when the project enters archival mode.
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// ProjectRole grants a user a role on a project. Facilitators may invite,
// comment on, and export a project's stories.
type ProjectRole struct {
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription is the billing attachment of a project. Only its existence
// matters to the lifecycle subsystem (it participates in the cascading purge).
type Subscription struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Invitation is a pending facilitator invite on a project.
type Invitation struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Chapter is a named grouping of stories within a project.
type Chapter struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Story is a single recorded life story.
type Story struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`

	// ChapterID is empty for uncategorized stories.
	ChapterID string `json:"chapterId,omitempty"`

	Title      string `json:"title"`
	Transcript string `json:"transcript,omitempty"`

	// AudioKey/PhotoKey are blob store keys; the matching *Format fields
	// hold the file extension ("mp3", "jpg", ...).
	AudioKey    string `json:"audioKey,omitempty"`
	AudioFormat string `json:"audioFormat,omitempty"`
	PhotoKey    string `json:"photoKey,omitempty"`
	PhotoFormat string `json:"photoFormat,omitempty"`

	DurationSeconds int       `json:"durationSeconds,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Interaction is a comment, question, or reaction attached to a story.
type Interaction struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	StoryID   string    `json:"storyId"`
	AuthorID  string    `json:"authorId"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChapterSummary is a generated summary of a chapter's stories.
type ChapterSummary struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	ChapterID string    `json:"chapterId"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// TempFile is a transient upload that never got attached to a story.
type TempFile struct {
	Key       string    `json:"key"`
	ProjectID string    `json:"projectId,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportStatus represents the state of an export request.
type ExportStatus string

const (
	// ExportQueued is the initial state after CreateExport returns.
	ExportQueued ExportStatus = "queued"
	// ExportProcessing means the pipeline has started.
	ExportProcessing ExportStatus = "processing"
	// ExportReady means the artifact is uploaded and downloadable.
	ExportReady ExportStatus = "ready"
	// ExportFailed is terminal; Error carries the pipeline failure.
	ExportFailed ExportStatus = "failed"
	// ExportExpired is terminal; the artifact has been removed.
	ExportExpired ExportStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
// ExportReady is semi-terminal: it can still transition to ExportExpired.
func (s ExportStatus) Terminal() bool {
	return s == ExportFailed || s == ExportExpired
}

// Format selects the export artifact shape.
type Format string

const (
	// FormatArchive produces a hierarchical zip archive.
	FormatArchive Format = "archive"
	// FormatDocument produces a flat JSON document.
	FormatDocument Format = "document"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatArchive, FormatDocument:
		return true
	}
	return false
}

// ContentType returns the MIME type of the produced artifact.
func (f Format) ContentType() string {
	if f == FormatDocument {
		return "application/json"
	}
	return "application/zip"
}

// Extension returns the artifact file extension without the dot.
func (f Format) Extension() string {
	if f == FormatDocument {
		return "json"
	}
	return "zip"
}

// ExportRequest is the persisted record of one export. It is created in
// ExportQueued by the orchestrator and mutated only by the orchestrator
// (status, progress, download URL) or the retention engine (expiry,
// deletion).
type ExportRequest struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"projectId"`
	FacilitatorID string        `json:"facilitatorId"`
	Status        ExportStatus  `json:"status"`
	Options       ExportOptions `json:"options"`

	// StorageKey is the blob store key of the uploaded artifact.
	StorageKey string `json:"storageKey,omitempty"`

	// DownloadURL and ExpiresAt are set iff Status is ExportReady.
	DownloadURL string     `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`

	// Progress and CurrentStep track the running pipeline (0-100).
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep,omitempty"`

	// Error holds the failure message when Status is ExportFailed.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DateRange bounds story selection by recording time.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ExportOptions selects the content and shape of an export. It is a value
// object embedded in the ExportRequest row rather than persisted separately.
type ExportOptions struct {
	IncludeAudio            bool `json:"includeAudio"`
	IncludePhotos           bool `json:"includePhotos"`
	IncludeTranscripts      bool `json:"includeTranscripts"`
	IncludeInteractions     bool `json:"includeInteractions"`
	IncludeChapterSummaries bool `json:"includeChapterSummaries"`
	IncludeMetadata         bool `json:"includeMetadata"`

	Format Format `json:"format"`

	// DateRange, when present, restricts stories to those recorded within
	// the range. Start must precede End and the span is capped at 24 months.
	DateRange *DateRange `json:"dateRange,omitempty"`

	// Chapters, when non-empty, restricts stories to the listed chapter ids.
	// At most 50 entries.
	Chapters []string `json:"chapters,omitempty"`

	// CustomName overrides the artifact base name. Max 100 characters,
	// letters, digits, spaces, underscores, and hyphens only.
	CustomName string `json:"customName,omitempty"`

	NotifyOnComplete bool `json:"notifyOnComplete"`
}

// ExportProgress is the point-in-time pipeline position reported by
// GetStatus. Progress and CurrentStep are persisted on the request row at
// every step transition, so polling observes real pipeline movement.
type ExportProgress struct {
	Status           ExportStatus `json:"status"`
	Progress         int          `json:"progress"`
	CurrentStep      string       `json:"currentStep"`
	TotalSteps       int          `json:"totalSteps"`
	CurrentStepIndex int          `json:"currentStepIndex"`
	StartedAt        *time.Time   `json:"startedAt,omitempty"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// Scope selects which projects a retention sweep applies to, by project
// status. At least one of the two must be set for a policy to be valid.
type Scope struct {
	Archived bool
	Active   bool
}

// Matches reports whether a project status falls inside the scope.
func (s Scope) Matches(status ProjectStatus) bool {
	switch status {
	case ProjectArchived:
		return s.Archived
	case ProjectActive:
		return s.Active
	}
	return false
}

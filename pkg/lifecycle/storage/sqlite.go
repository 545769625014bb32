package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// SQLiteConfig contains configuration for the SQLite repository backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/chronicle.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteRepository implements the Repository interface using SQLite.
type SQLiteRepository struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteRepository creates a new SQLite repository backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteRepository(config *SQLiteConfig) (*SQLiteRepository, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "lifecycle.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	r := &SQLiteRepository{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite repository initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return r, nil
}

// initialize sets up the database schema and enables WAL mode.
func (r *SQLiteRepository) initialize() error {
	if r.config.WALMode {
		if _, err := r.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return lifecycle.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := r.config.BusyTimeout.Milliseconds()
	if _, err := r.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return lifecycle.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := r.db.Exec(Schema); err != nil {
		return lifecycle.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := r.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return lifecycle.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := r.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return lifecycle.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return lifecycle.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// nullStr converts an empty string to a NULL column value.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime converts a nil time pointer to a NULL column value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// scopeCondition returns a WHERE fragment restricting rows to parent
// projects inside the scope. Orphaned rows (parent project already gone)
// are always candidates. The projects table must be joined with alias p.
func scopeCondition(scope lifecycle.Scope) string {
	switch {
	case scope.Archived && scope.Active:
		return "1"
	case scope.Archived:
		return "(p.id IS NULL OR p.status = 'archived')"
	case scope.Active:
		return "(p.id IS NULL OR p.status = 'active')"
	default:
		return "0"
	}
}

// GetProject returns a project by id.
func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*lifecycle.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, storyteller_id, status, created_at, updated_at, archived_at
		 FROM projects WHERE id = ?`, id)

	var p lifecycle.Project
	var archivedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.StorytellerID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &archivedAt)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFoundError("project", id)
	}
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "get_project", err)
	}
	if archivedAt.Valid {
		p.ArchivedAt = &archivedAt.Time
	}
	return &p, nil
}

// PutProject inserts or replaces a project row.
func (r *SQLiteRepository) PutProject(ctx context.Context, p *lifecycle.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO projects (id, name, storyteller_id, status, created_at, updated_at, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.StorytellerID, p.Status, p.CreatedAt, p.UpdatedAt, nullTime(p.ArchivedAt))
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_project", err)
	}
	return nil
}

// ListProjectsBefore returns purge candidates: projects inside the scope
// whose archival time (or creation time, when never archived) precedes the
// cutoff.
func (r *SQLiteRepository) ListProjectsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Project, error) {
	var statuses []string
	if q.Scope.Archived {
		statuses = append(statuses, string(lifecycle.ProjectArchived))
	}
	if q.Scope.Active {
		statuses = append(statuses, string(lifecycle.ProjectActive))
	}
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{q.Cutoff}
	for _, s := range statuses {
		args = append(args, s)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, name, storyteller_id, status, created_at, updated_at, archived_at
		 FROM projects
		 WHERE COALESCE(archived_at, created_at) < ? AND status IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_projects_before", err)
	}
	defer rows.Close()

	var projects []*lifecycle.Project
	for rows.Next() {
		var p lifecycle.Project
		var archivedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.StorytellerID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &archivedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_project", err)
		}
		if archivedAt.Valid {
			p.ArchivedAt = &archivedAt.Time
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_projects_before", err)
	}
	return projects, nil
}

// HasProjectRole reports whether the user holds any role on the project.
func (r *SQLiteRepository) HasProjectRole(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_roles WHERE project_id = ? AND user_id = ?`,
		projectID, userID).Scan(&n)
	if err != nil {
		return false, lifecycle.NewStorageError("sqlite", "has_project_role", err)
	}
	return n > 0, nil
}

// PutProjectRole inserts or replaces a project role.
func (r *SQLiteRepository) PutProjectRole(ctx context.Context, role *lifecycle.ProjectRole) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO project_roles (project_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`,
		role.ProjectID, role.UserID, role.Role, role.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_project_role", err)
	}
	return nil
}

// PutSubscription inserts or replaces a subscription row.
func (r *SQLiteRepository) PutSubscription(ctx context.Context, s *lifecycle.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO subscriptions (id, project_id, status, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.Status, s.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_subscription", err)
	}
	return nil
}

// PutInvitation inserts or replaces an invitation row.
func (r *SQLiteRepository) PutInvitation(ctx context.Context, i *lifecycle.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO invitations (id, project_id, email, created_at) VALUES (?, ?, ?, ?)`,
		i.ID, i.ProjectID, i.Email, i.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_invitation", err)
	}
	return nil
}

// PutChapter inserts or replaces a chapter row.
func (r *SQLiteRepository) PutChapter(ctx context.Context, c *lifecycle.Chapter) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chapters (id, project_id, name, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Name, c.Position, c.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_chapter", err)
	}
	return nil
}

// ListChapters returns a project's chapters ordered by position.
func (r *SQLiteRepository) ListChapters(ctx context.Context, projectID string) ([]*lifecycle.Chapter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, name, position, created_at FROM chapters
		 WHERE project_id = ? ORDER BY position, created_at`, projectID)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_chapters", err)
	}
	defer rows.Close()

	var chapters []*lifecycle.Chapter
	for rows.Next() {
		var c lifecycle.Chapter
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_chapter", err)
		}
		chapters = append(chapters, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_chapters", err)
	}
	return chapters, nil
}

// PutStory inserts or replaces a story row.
func (r *SQLiteRepository) PutStory(ctx context.Context, s *lifecycle.Story) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO stories
		 (id, project_id, chapter_id, title, transcript, audio_key, audio_format,
		  photo_key, photo_format, duration_seconds, recorded_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, nullStr(s.ChapterID), s.Title, nullStr(s.Transcript),
		nullStr(s.AudioKey), nullStr(s.AudioFormat), nullStr(s.PhotoKey), nullStr(s.PhotoFormat),
		s.DurationSeconds, s.RecordedAt, s.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_story", err)
	}
	return nil
}

func scanStory(rows *sql.Rows) (*lifecycle.Story, error) {
	var s lifecycle.Story
	var chapterID, transcript, audioKey, audioFormat, photoKey, photoFormat sql.NullString
	err := rows.Scan(&s.ID, &s.ProjectID, &chapterID, &s.Title, &transcript,
		&audioKey, &audioFormat, &photoKey, &photoFormat,
		&s.DurationSeconds, &s.RecordedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.ChapterID = chapterID.String
	s.Transcript = transcript.String
	s.AudioKey = audioKey.String
	s.AudioFormat = audioFormat.String
	s.PhotoKey = photoKey.String
	s.PhotoFormat = photoFormat.String
	return &s, nil
}

const storyColumns = `id, project_id, chapter_id, title, transcript, audio_key, audio_format,
	photo_key, photo_format, duration_seconds, recorded_at, created_at`

// ListStories returns a project's stories, optionally filtered by date
// range and chapter ids, ordered by recording time.
func (r *SQLiteRepository) ListStories(ctx context.Context, projectID string, filter *StoryFilter) ([]*lifecycle.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE project_id = ?`
	args := []any{projectID}

	if filter != nil {
		if filter.DateRange != nil {
			query += ` AND recorded_at >= ? AND recorded_at <= ?`
			args = append(args, filter.DateRange.Start, filter.DateRange.End)
		}
		if len(filter.ChapterIDs) > 0 {
			placeholders := strings.Repeat("?,", len(filter.ChapterIDs))
			query += ` AND chapter_id IN (` + placeholders[:len(placeholders)-1] + `)`
			for _, id := range filter.ChapterIDs {
				args = append(args, id)
			}
		}
	}
	query += ` ORDER BY recorded_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_stories", err)
	}
	defer rows.Close()

	var stories []*lifecycle.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_story", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_stories", err)
	}
	return stories, nil
}

// ListStoriesBefore returns retention sweep candidates among stories.
func (r *SQLiteRepository) ListStoriesBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Story, error) {
	query := `SELECT s.id, s.project_id, s.chapter_id, s.title, s.transcript,
		s.audio_key, s.audio_format, s.photo_key, s.photo_format,
		s.duration_seconds, s.recorded_at, s.created_at
		FROM stories s LEFT JOIN projects p ON p.id = s.project_id
		WHERE s.created_at < ? AND ` + scopeCondition(q.Scope)

	rows, err := r.db.QueryContext(ctx, query, q.Cutoff)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_stories_before", err)
	}
	defer rows.Close()

	var stories []*lifecycle.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_story", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_stories_before", err)
	}
	return stories, nil
}

// DeleteStory removes a story row.
func (r *SQLiteRepository) DeleteStory(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id); err != nil {
		return lifecycle.NewStorageError("sqlite", "delete_story", err)
	}
	return nil
}

// PutInteraction inserts or replaces an interaction row.
func (r *SQLiteRepository) PutInteraction(ctx context.Context, i *lifecycle.Interaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO interactions (id, project_id, story_id, author_id, kind, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.ProjectID, i.StoryID, i.AuthorID, i.Kind, i.Body, i.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_interaction", err)
	}
	return nil
}

// ListInteractions returns a project's interactions ordered by creation.
func (r *SQLiteRepository) ListInteractions(ctx context.Context, projectID string) ([]*lifecycle.Interaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, story_id, author_id, kind, body, created_at
		 FROM interactions WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_interactions", err)
	}
	defer rows.Close()

	var interactions []*lifecycle.Interaction
	for rows.Next() {
		var i lifecycle.Interaction
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.StoryID, &i.AuthorID, &i.Kind, &i.Body, &i.CreatedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_interaction", err)
		}
		interactions = append(interactions, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_interactions", err)
	}
	return interactions, nil
}

// ListInteractionsBefore returns retention sweep candidates among
// interactions.
func (r *SQLiteRepository) ListInteractionsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Interaction, error) {
	query := `SELECT i.id, i.project_id, i.story_id, i.author_id, i.kind, i.body, i.created_at
		FROM interactions i LEFT JOIN projects p ON p.id = i.project_id
		WHERE i.created_at < ? AND ` + scopeCondition(q.Scope)

	rows, err := r.db.QueryContext(ctx, query, q.Cutoff)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_interactions_before", err)
	}
	defer rows.Close()

	var interactions []*lifecycle.Interaction
	for rows.Next() {
		var i lifecycle.Interaction
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.StoryID, &i.AuthorID, &i.Kind, &i.Body, &i.CreatedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_interaction", err)
		}
		interactions = append(interactions, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_interactions_before", err)
	}
	return interactions, nil
}

// DeleteInteraction removes an interaction row.
func (r *SQLiteRepository) DeleteInteraction(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM interactions WHERE id = ?`, id); err != nil {
		return lifecycle.NewStorageError("sqlite", "delete_interaction", err)
	}
	return nil
}

// PutChapterSummary inserts or replaces a chapter summary row.
func (r *SQLiteRepository) PutChapterSummary(ctx context.Context, s *lifecycle.ChapterSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chapter_summaries (id, project_id, chapter_id, summary, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.ChapterID, s.Summary, s.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_chapter_summary", err)
	}
	return nil
}

// ListChapterSummaries returns a project's chapter summaries.
func (r *SQLiteRepository) ListChapterSummaries(ctx context.Context, projectID string) ([]*lifecycle.ChapterSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, chapter_id, summary, created_at
		 FROM chapter_summaries WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_chapter_summaries", err)
	}
	defer rows.Close()

	var summaries []*lifecycle.ChapterSummary
	for rows.Next() {
		var s lifecycle.ChapterSummary
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.ChapterID, &s.Summary, &s.CreatedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_chapter_summary", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_chapter_summaries", err)
	}
	return summaries, nil
}

// ListChapterSummariesBefore returns retention sweep candidates among
// chapter summaries.
func (r *SQLiteRepository) ListChapterSummariesBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.ChapterSummary, error) {
	query := `SELECT s.id, s.project_id, s.chapter_id, s.summary, s.created_at
		FROM chapter_summaries s LEFT JOIN projects p ON p.id = s.project_id
		WHERE s.created_at < ? AND ` + scopeCondition(q.Scope)

	rows, err := r.db.QueryContext(ctx, query, q.Cutoff)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_chapter_summaries_before", err)
	}
	defer rows.Close()

	var summaries []*lifecycle.ChapterSummary
	for rows.Next() {
		var s lifecycle.ChapterSummary
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.ChapterID, &s.Summary, &s.CreatedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_chapter_summary", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_chapter_summaries_before", err)
	}
	return summaries, nil
}

// DeleteChapterSummary removes a chapter summary row.
func (r *SQLiteRepository) DeleteChapterSummary(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chapter_summaries WHERE id = ?`, id); err != nil {
		return lifecycle.NewStorageError("sqlite", "delete_chapter_summary", err)
	}
	return nil
}

// PutTempFile inserts or replaces a temp file row.
func (r *SQLiteRepository) PutTempFile(ctx context.Context, f *lifecycle.TempFile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO temp_files (key, project_id, size, created_at) VALUES (?, ?, ?, ?)`,
		f.Key, nullStr(f.ProjectID), f.Size, f.CreatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "put_temp_file", err)
	}
	return nil
}

// ListTempFilesBefore returns temp files created before the cutoff. Temp
// files have no meaningful project scope; age alone selects them.
func (r *SQLiteRepository) ListTempFilesBefore(ctx context.Context, cutoff time.Time) ([]*lifecycle.TempFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, project_id, size, created_at FROM temp_files WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_temp_files_before", err)
	}
	defer rows.Close()

	var files []*lifecycle.TempFile
	for rows.Next() {
		var f lifecycle.TempFile
		var projectID sql.NullString
		if err := rows.Scan(&f.Key, &projectID, &f.Size, &f.CreatedAt); err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_temp_file", err)
		}
		f.ProjectID = projectID.String
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_temp_files_before", err)
	}
	return files, nil
}

// DeleteTempFile removes a temp file row.
func (r *SQLiteRepository) DeleteTempFile(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM temp_files WHERE key = ?`, key); err != nil {
		return lifecycle.NewStorageError("sqlite", "delete_temp_file", err)
	}
	return nil
}

const exportColumns = `id, project_id, facilitator_id, status, options, storage_key,
	download_url, expires_at, progress, current_step, error, created_at, updated_at`

func scanExportRequest(row interface{ Scan(...any) error }) (*lifecycle.ExportRequest, error) {
	var req lifecycle.ExportRequest
	var optionsJSON string
	var storageKey, downloadURL, currentStep, errMsg sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(&req.ID, &req.ProjectID, &req.FacilitatorID, &req.Status, &optionsJSON,
		&storageKey, &downloadURL, &expiresAt, &req.Progress, &currentStep, &errMsg,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}

	req.StorageKey = storageKey.String
	req.DownloadURL = downloadURL.String
	req.CurrentStep = currentStep.String
	req.Error = errMsg.String
	if expiresAt.Valid {
		req.ExpiresAt = &expiresAt.Time
	}
	if err := json.Unmarshal([]byte(optionsJSON), &req.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return &req, nil
}

// CreateExportRequest persists a new export request row.
func (r *SQLiteRepository) CreateExportRequest(ctx context.Context, req *lifecycle.ExportRequest) error {
	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "encode_options", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO export_requests
		 (id, project_id, facilitator_id, status, options, storage_key, download_url,
		  expires_at, progress, current_step, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.ProjectID, req.FacilitatorID, req.Status, string(optionsJSON),
		nullStr(req.StorageKey), nullStr(req.DownloadURL), nullTime(req.ExpiresAt),
		req.Progress, nullStr(req.CurrentStep), nullStr(req.Error),
		req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "create_export", err)
	}
	return nil
}

// GetExportRequest returns an export request by id.
func (r *SQLiteRepository) GetExportRequest(ctx context.Context, id string) (*lifecycle.ExportRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+exportColumns+` FROM export_requests WHERE id = ?`, id)

	req, err := scanExportRequest(row)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFoundError("export", id)
	}
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "get_export", err)
	}
	return req, nil
}

// ListExportRequests returns a project's export requests, newest first.
func (r *SQLiteRepository) ListExportRequests(ctx context.Context, projectID string) ([]*lifecycle.ExportRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+exportColumns+` FROM export_requests
		 WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_exports", err)
	}
	defer rows.Close()

	var requests []*lifecycle.ExportRequest
	for rows.Next() {
		req, err := scanExportRequest(rows)
		if err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_export", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_exports", err)
	}
	return requests, nil
}

// FindActiveExport returns a queued or processing export for the pair
// created at or after since, or nil when none exists.
func (r *SQLiteRepository) FindActiveExport(ctx context.Context, projectID, facilitatorID string, since time.Time) (*lifecycle.ExportRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+exportColumns+` FROM export_requests
		 WHERE project_id = ? AND facilitator_id = ?
		   AND status IN ('queued', 'processing') AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		projectID, facilitatorID, since)

	req, err := scanExportRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "find_active_export", err)
	}
	return req, nil
}

// UpdateExportProgress persists a pipeline step transition.
func (r *SQLiteRepository) UpdateExportProgress(ctx context.Context, id string, status lifecycle.ExportStatus, progress int, step string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_requests SET status = ?, progress = ?, current_step = ?, updated_at = ?
		 WHERE id = ?`,
		status, progress, nullStr(step), time.Now().UTC(), id)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "update_export_progress", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lifecycle.NewNotFoundError("export", id)
	}
	return nil
}

// MarkExportReady finalizes a successful export.
func (r *SQLiteRepository) MarkExportReady(ctx context.Context, id, storageKey, downloadURL string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_requests
		 SET status = 'ready', storage_key = ?, download_url = ?, expires_at = ?,
		     progress = 100, current_step = 'Completed', error = NULL, updated_at = ?
		 WHERE id = ?`,
		storageKey, downloadURL, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "mark_export_ready", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lifecycle.NewNotFoundError("export", id)
	}
	return nil
}

// MarkExportFailed records a pipeline failure.
func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id, message string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_requests
		 SET status = 'failed', error = ?, download_url = NULL, expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		message, time.Now().UTC(), id)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "mark_export_failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lifecycle.NewNotFoundError("export", id)
	}
	return nil
}

// MarkExportExpired transitions a ready export to expired.
func (r *SQLiteRepository) MarkExportExpired(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_requests
		 SET status = 'expired', download_url = NULL, expires_at = NULL, updated_at = ?
		 WHERE id = ? AND status = 'ready'`,
		time.Now().UTC(), id)
	if err != nil {
		return lifecycle.NewStorageError("sqlite", "mark_export_expired", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lifecycle.NewNotFoundError("export", id)
	}
	return nil
}

// ListExportRequestsBefore returns retention sweep candidates among export
// requests.
func (r *SQLiteRepository) ListExportRequestsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.ExportRequest, error) {
	query := `SELECT e.id, e.project_id, e.facilitator_id, e.status, e.options, e.storage_key,
		e.download_url, e.expires_at, e.progress, e.current_step, e.error, e.created_at, e.updated_at
		FROM export_requests e LEFT JOIN projects p ON p.id = e.project_id
		WHERE e.created_at < ? AND ` + scopeCondition(q.Scope)

	rows, err := r.db.QueryContext(ctx, query, q.Cutoff)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_exports_before", err)
	}
	defer rows.Close()

	var requests []*lifecycle.ExportRequest
	for rows.Next() {
		req, err := scanExportRequest(rows)
		if err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_export", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_exports_before", err)
	}
	return requests, nil
}

// ListExpiredExports returns ready exports whose ExpiresAt has passed.
func (r *SQLiteRepository) ListExpiredExports(ctx context.Context, now time.Time) ([]*lifecycle.ExportRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+exportColumns+` FROM export_requests
		 WHERE status = 'ready' AND expires_at IS NOT NULL AND expires_at < ?`, now)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_expired_exports", err)
	}
	defer rows.Close()

	var requests []*lifecycle.ExportRequest
	for rows.Next() {
		req, err := scanExportRequest(rows)
		if err != nil {
			return nil, lifecycle.NewStorageError("sqlite", "scan_export", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "list_expired_exports", err)
	}
	return requests, nil
}

// DeleteExportRequest removes an export request row.
func (r *SQLiteRepository) DeleteExportRequest(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM export_requests WHERE id = ?`, id); err != nil {
		return lifecycle.NewStorageError("sqlite", "delete_export", err)
	}
	return nil
}

// PurgeProject atomically deletes a project and everything referencing it,
// in strict dependency order: interactions, chapter summaries, stories
// (with their blobs), chapters, export requests (with their blobs),
// project roles, subscriptions, invitations, and finally the project row.
// Any failure, including one from the BlobDeleter, rolls back the whole
// transaction.
func (r *SQLiteRepository) PurgeProject(ctx context.Context, projectID string, deleteBlobs BlobDeleter) (*PurgeStats, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, lifecycle.NewStorageError("sqlite", "begin_purge", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM projects WHERE id = ?`, projectID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFoundError("project", projectID)
	}
	if err != nil {
		return nil, lifecycle.NewPurgeError(projectID, "lookup", err)
	}

	stats := &PurgeStats{}

	exec := func(step, query string, args ...any) (int, error) {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, lifecycle.NewPurgeError(projectID, step, err)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	}

	// Story blob keys must be collected before their rows disappear.
	storyKeys, err := r.collectStoryBlobKeys(ctx, tx, projectID)
	if err != nil {
		return nil, lifecycle.NewPurgeError(projectID, "collect_story_blobs", err)
	}

	if stats.Interactions, err = exec("interactions",
		`DELETE FROM interactions WHERE story_id IN (SELECT id FROM stories WHERE project_id = ?)`, projectID); err != nil {
		return nil, err
	}
	if stats.ChapterSummaries, err = exec("chapter_summaries",
		`DELETE FROM chapter_summaries WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}

	if deleteBlobs != nil && len(storyKeys) > 0 {
		freed, err := deleteBlobs(ctx, storyKeys)
		if err != nil {
			return nil, lifecycle.NewPurgeError(projectID, "story_blobs", err)
		}
		stats.StorageFreed += freed
	}
	if stats.Stories, err = exec("stories",
		`DELETE FROM stories WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}
	if stats.Chapters, err = exec("chapters",
		`DELETE FROM chapters WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}

	exportKeys, err := r.collectExportBlobKeys(ctx, tx, projectID)
	if err != nil {
		return nil, lifecycle.NewPurgeError(projectID, "collect_export_blobs", err)
	}
	if deleteBlobs != nil && len(exportKeys) > 0 {
		freed, err := deleteBlobs(ctx, exportKeys)
		if err != nil {
			return nil, lifecycle.NewPurgeError(projectID, "export_blobs", err)
		}
		stats.StorageFreed += freed
	}
	if stats.ExportRequests, err = exec("export_requests",
		`DELETE FROM export_requests WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}

	if stats.Roles, err = exec("project_roles",
		`DELETE FROM project_roles WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}
	if stats.Subscriptions, err = exec("subscriptions",
		`DELETE FROM subscriptions WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}
	if stats.Invitations, err = exec("invitations",
		`DELETE FROM invitations WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}
	if _, err = exec("project", `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, lifecycle.NewPurgeError(projectID, "commit", err)
	}

	r.logger.Info("project purged",
		"project_id", projectID,
		"rows_deleted", stats.Total(),
		"storage_freed", stats.StorageFreed,
	)

	return stats, nil
}

func (r *SQLiteRepository) collectStoryBlobKeys(ctx context.Context, tx *sql.Tx, projectID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT audio_key, photo_key FROM stories WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var audioKey, photoKey sql.NullString
		if err := rows.Scan(&audioKey, &photoKey); err != nil {
			return nil, err
		}
		if audioKey.String != "" {
			keys = append(keys, audioKey.String)
		}
		if photoKey.String != "" {
			keys = append(keys, photoKey.String)
		}
	}
	return keys, rows.Err()
}

func (r *SQLiteRepository) collectExportBlobKeys(ctx context.Context, tx *sql.Tx, projectID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT storage_key FROM export_requests WHERE project_id = ? AND storage_key IS NOT NULL`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key sql.NullString
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		if key.String != "" {
			keys = append(keys, key.String)
		}
	}
	return keys, rows.Err()
}

// Close releases the database connection.
func (r *SQLiteRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return lifecycle.NewStorageError("sqlite", "close", err)
	}
	r.logger.Info("SQLite repository closed")
	return nil
}

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// MemoryRepository implements the Repository interface using in-memory
// maps. This implementation is intended for testing only.
type MemoryRepository struct {
	mu sync.RWMutex

	projects      map[string]*lifecycle.Project
	roles         map[string]map[string]*lifecycle.ProjectRole // projectID -> userID
	subscriptions map[string]*lifecycle.Subscription
	invitations   map[string]*lifecycle.Invitation
	chapters      map[string]*lifecycle.Chapter
	stories       map[string]*lifecycle.Story
	interactions  map[string]*lifecycle.Interaction
	summaries     map[string]*lifecycle.ChapterSummary
	tempFiles     map[string]*lifecycle.TempFile
	exports       map[string]*lifecycle.ExportRequest
}

// NewMemoryRepository creates a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects:      make(map[string]*lifecycle.Project),
		roles:         make(map[string]map[string]*lifecycle.ProjectRole),
		subscriptions: make(map[string]*lifecycle.Subscription),
		invitations:   make(map[string]*lifecycle.Invitation),
		chapters:      make(map[string]*lifecycle.Chapter),
		stories:       make(map[string]*lifecycle.Story),
		interactions:  make(map[string]*lifecycle.Interaction),
		summaries:     make(map[string]*lifecycle.ChapterSummary),
		tempFiles:     make(map[string]*lifecycle.TempFile),
		exports:       make(map[string]*lifecycle.ExportRequest),
	}
}

// inScope reports whether a row's parent project falls inside the sweep
// scope. Orphaned rows are always candidates, matching the SQLite backend.
func (r *MemoryRepository) inScope(projectID string, scope lifecycle.Scope) bool {
	p, ok := r.projects[projectID]
	if !ok {
		return true
	}
	return scope.Matches(p.Status)
}

// GetProject returns a project by id.
func (r *MemoryRepository) GetProject(ctx context.Context, id string) (*lifecycle.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, lifecycle.NewNotFoundError("project", id)
	}
	cp := *p
	return &cp, nil
}

// PutProject inserts or replaces a project.
func (r *MemoryRepository) PutProject(ctx context.Context, p *lifecycle.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

// ListProjectsBefore returns purge candidates among projects.
func (r *MemoryRepository) ListProjectsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.Project
	for _, p := range r.projects {
		if !q.Scope.Matches(p.Status) {
			continue
		}
		ref := p.CreatedAt
		if p.ArchivedAt != nil {
			ref = *p.ArchivedAt
		}
		if ref.Before(q.Cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByID(out, func(p *lifecycle.Project) string { return p.ID })
	return out, nil
}

// HasProjectRole reports whether the user holds any role on the project.
func (r *MemoryRepository) HasProjectRole(ctx context.Context, projectID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.roles[projectID][userID]
	return ok, nil
}

// PutProjectRole inserts or replaces a project role.
func (r *MemoryRepository) PutProjectRole(ctx context.Context, role *lifecycle.ProjectRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roles[role.ProjectID] == nil {
		r.roles[role.ProjectID] = make(map[string]*lifecycle.ProjectRole)
	}
	cp := *role
	r.roles[role.ProjectID][role.UserID] = &cp
	return nil
}

// PutSubscription inserts or replaces a subscription.
func (r *MemoryRepository) PutSubscription(ctx context.Context, s *lifecycle.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.subscriptions[s.ID] = &cp
	return nil
}

// PutInvitation inserts or replaces an invitation.
func (r *MemoryRepository) PutInvitation(ctx context.Context, i *lifecycle.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *i
	r.invitations[i.ID] = &cp
	return nil
}

// PutChapter inserts or replaces a chapter.
func (r *MemoryRepository) PutChapter(ctx context.Context, c *lifecycle.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *c
	r.chapters[c.ID] = &cp
	return nil
}

// ListChapters returns a project's chapters ordered by position.
func (r *MemoryRepository) ListChapters(ctx context.Context, projectID string) ([]*lifecycle.Chapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.Chapter
	for _, c := range r.chapters {
		if c.ProjectID == projectID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PutStory inserts or replaces a story.
func (r *MemoryRepository) PutStory(ctx context.Context, s *lifecycle.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.stories[s.ID] = &cp
	return nil
}

// ListStories returns a project's stories, optionally filtered, ordered by
// recording time.
func (r *MemoryRepository) ListStories(ctx context.Context, projectID string, filter *StoryFilter) ([]*lifecycle.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chapterSet := map[string]bool{}
	if filter != nil {
		for _, id := range filter.ChapterIDs {
			chapterSet[id] = true
		}
	}

	var out []*lifecycle.Story
	for _, s := range r.stories {
		if s.ProjectID != projectID {
			continue
		}
		if filter != nil {
			if filter.DateRange != nil &&
				(s.RecordedAt.Before(filter.DateRange.Start) || s.RecordedAt.After(filter.DateRange.End)) {
				continue
			}
			if len(chapterSet) > 0 && !chapterSet[s.ChapterID] {
				continue
			}
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// ListStoriesBefore returns retention sweep candidates among stories.
func (r *MemoryRepository) ListStoriesBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.Story
	for _, s := range r.stories {
		if s.CreatedAt.Before(q.Cutoff) && r.inScope(s.ProjectID, q.Scope) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortByID(out, func(s *lifecycle.Story) string { return s.ID })
	return out, nil
}

// DeleteStory removes a story.
func (r *MemoryRepository) DeleteStory(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.stories, id)
	return nil
}

// PutInteraction inserts or replaces an interaction.
func (r *MemoryRepository) PutInteraction(ctx context.Context, i *lifecycle.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *i
	r.interactions[i.ID] = &cp
	return nil
}

// ListInteractions returns a project's interactions ordered by creation.
func (r *MemoryRepository) ListInteractions(ctx context.Context, projectID string) ([]*lifecycle.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.Interaction
	for _, i := range r.interactions {
		if i.ProjectID == projectID {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

// ListInteractionsBefore returns retention sweep candidates among
// interactions.
func (r *MemoryRepository) ListInteractionsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.Interaction
	for _, i := range r.interactions {
		if i.CreatedAt.Before(q.Cutoff) && r.inScope(i.ProjectID, q.Scope) {
			cp := *i
			out = append(out, &cp)
		}
	}
	sortByID(out, func(i *lifecycle.Interaction) string { return i.ID })
	return out, nil
}

// DeleteInteraction removes an interaction.
func (r *MemoryRepository) DeleteInteraction(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.interactions, id)
	return nil
}

// PutChapterSummary inserts or replaces a chapter summary.
func (r *MemoryRepository) PutChapterSummary(ctx context.Context, s *lifecycle.ChapterSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.summaries[s.ID] = &cp
	return nil
}

// ListChapterSummaries returns a project's chapter summaries.
func (r *MemoryRepository) ListChapterSummaries(ctx context.Context, projectID string) ([]*lifecycle.ChapterSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.ChapterSummary
	for _, s := range r.summaries {
		if s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

// ListChapterSummariesBefore returns retention sweep candidates among
// chapter summaries.
func (r *MemoryRepository) ListChapterSummariesBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.ChapterSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.ChapterSummary
	for _, s := range r.summaries {
		if s.CreatedAt.Before(q.Cutoff) && r.inScope(s.ProjectID, q.Scope) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortByID(out, func(s *lifecycle.ChapterSummary) string { return s.ID })
	return out, nil
}

// DeleteChapterSummary removes a chapter summary.
func (r *MemoryRepository) DeleteChapterSummary(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.summaries, id)
	return nil
}

// PutTempFile inserts or replaces a temp file row.
func (r *MemoryRepository) PutTempFile(ctx context.Context, f *lifecycle.TempFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *f
	r.tempFiles[f.Key] = &cp
	return nil
}

// ListTempFilesBefore returns temp files created before the cutoff.
func (r *MemoryRepository) ListTempFilesBefore(ctx context.Context, cutoff time.Time) ([]*lifecycle.TempFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.TempFile
	for _, f := range r.tempFiles {
		if f.CreatedAt.Before(cutoff) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sortByID(out, func(f *lifecycle.TempFile) string { return f.Key })
	return out, nil
}

// DeleteTempFile removes a temp file row.
func (r *MemoryRepository) DeleteTempFile(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tempFiles, key)
	return nil
}

// CreateExportRequest persists a new export request.
func (r *MemoryRepository) CreateExportRequest(ctx context.Context, req *lifecycle.ExportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *req
	r.exports[req.ID] = &cp
	return nil
}

// GetExportRequest returns an export request by id.
func (r *MemoryRepository) GetExportRequest(ctx context.Context, id string) (*lifecycle.ExportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.exports[id]
	if !ok {
		return nil, lifecycle.NewNotFoundError("export", id)
	}
	cp := *req
	return &cp, nil
}

// ListExportRequests returns a project's export requests, newest first.
func (r *MemoryRepository) ListExportRequests(ctx context.Context, projectID string) ([]*lifecycle.ExportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.ExportRequest
	for _, req := range r.exports {
		if req.ProjectID == projectID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

// FindActiveExport returns a queued or processing export for the pair
// created at or after since, or nil.
func (r *MemoryRepository) FindActiveExport(ctx context.Context, projectID, facilitatorID string, since time.Time) (*lifecycle.ExportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *lifecycle.ExportRequest
	for _, req := range r.exports {
		if req.ProjectID != projectID || req.FacilitatorID != facilitatorID {
			continue
		}
		if req.Status != lifecycle.ExportQueued && req.Status != lifecycle.ExportProcessing {
			continue
		}
		if req.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// UpdateExportProgress persists a pipeline step transition.
func (r *MemoryRepository) UpdateExportProgress(ctx context.Context, id string, status lifecycle.ExportStatus, progress int, step string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.exports[id]
	if !ok {
		return lifecycle.NewNotFoundError("export", id)
	}
	req.Status = status
	req.Progress = progress
	req.CurrentStep = step
	req.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkExportReady finalizes a successful export.
func (r *MemoryRepository) MarkExportReady(ctx context.Context, id, storageKey, downloadURL string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.exports[id]
	if !ok {
		return lifecycle.NewNotFoundError("export", id)
	}
	req.Status = lifecycle.ExportReady
	req.StorageKey = storageKey
	req.DownloadURL = downloadURL
	req.ExpiresAt = &expiresAt
	req.Progress = 100
	req.CurrentStep = "Completed"
	req.Error = ""
	req.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkExportFailed records a pipeline failure.
func (r *MemoryRepository) MarkExportFailed(ctx context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.exports[id]
	if !ok {
		return lifecycle.NewNotFoundError("export", id)
	}
	req.Status = lifecycle.ExportFailed
	req.Error = message
	req.DownloadURL = ""
	req.ExpiresAt = nil
	req.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkExportExpired transitions a ready export to expired.
func (r *MemoryRepository) MarkExportExpired(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.exports[id]
	if !ok || req.Status != lifecycle.ExportReady {
		return lifecycle.NewNotFoundError("export", id)
	}
	req.Status = lifecycle.ExportExpired
	req.DownloadURL = ""
	req.ExpiresAt = nil
	req.UpdatedAt = time.Now().UTC()
	return nil
}

// ListExportRequestsBefore returns retention sweep candidates among export
// requests.
func (r *MemoryRepository) ListExportRequestsBefore(ctx context.Context, q SweepQuery) ([]*lifecycle.ExportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.ExportRequest
	for _, req := range r.exports {
		if req.CreatedAt.Before(q.Cutoff) && r.inScope(req.ProjectID, q.Scope) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortByID(out, func(req *lifecycle.ExportRequest) string { return req.ID })
	return out, nil
}

// ListExpiredExports returns ready exports whose ExpiresAt has passed.
func (r *MemoryRepository) ListExpiredExports(ctx context.Context, now time.Time) ([]*lifecycle.ExportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*lifecycle.ExportRequest
	for _, req := range r.exports {
		if req.Status == lifecycle.ExportReady && req.ExpiresAt != nil && req.ExpiresAt.Before(now) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortByID(out, func(req *lifecycle.ExportRequest) string { return req.ID })
	return out, nil
}

// DeleteExportRequest removes an export request.
func (r *MemoryRepository) DeleteExportRequest(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.exports, id)
	return nil
}

// PurgeProject atomically deletes a project and everything referencing it.
// Row deletions are staged and applied only after every step, including the
// BlobDeleter calls, has succeeded, mirroring the SQLite transaction.
func (r *MemoryRepository) PurgeProject(ctx context.Context, projectID string, deleteBlobs BlobDeleter) (*PurgeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[projectID]; !ok {
		return nil, lifecycle.NewNotFoundError("project", projectID)
	}

	stats := &PurgeStats{}

	var storyIDs, storyKeys []string
	for _, s := range r.stories {
		if s.ProjectID == projectID {
			storyIDs = append(storyIDs, s.ID)
			if s.AudioKey != "" {
				storyKeys = append(storyKeys, s.AudioKey)
			}
			if s.PhotoKey != "" {
				storyKeys = append(storyKeys, s.PhotoKey)
			}
		}
	}
	storySet := map[string]bool{}
	for _, id := range storyIDs {
		storySet[id] = true
	}

	var interactionIDs []string
	for _, i := range r.interactions {
		if storySet[i.StoryID] {
			interactionIDs = append(interactionIDs, i.ID)
		}
	}
	var summaryIDs []string
	for _, s := range r.summaries {
		if s.ProjectID == projectID {
			summaryIDs = append(summaryIDs, s.ID)
		}
	}
	var chapterIDs []string
	for _, c := range r.chapters {
		if c.ProjectID == projectID {
			chapterIDs = append(chapterIDs, c.ID)
		}
	}
	var exportIDs, exportKeys []string
	for _, e := range r.exports {
		if e.ProjectID == projectID {
			exportIDs = append(exportIDs, e.ID)
			if e.StorageKey != "" {
				exportKeys = append(exportKeys, e.StorageKey)
			}
		}
	}
	var subscriptionIDs []string
	for _, s := range r.subscriptions {
		if s.ProjectID == projectID {
			subscriptionIDs = append(subscriptionIDs, s.ID)
		}
	}
	var invitationIDs []string
	for _, i := range r.invitations {
		if i.ProjectID == projectID {
			invitationIDs = append(invitationIDs, i.ID)
		}
	}

	// Blob deletion happens before any row mutation; an error leaves the
	// repository untouched.
	if deleteBlobs != nil && len(storyKeys) > 0 {
		freed, err := deleteBlobs(ctx, storyKeys)
		if err != nil {
			return nil, lifecycle.NewPurgeError(projectID, "story_blobs", err)
		}
		stats.StorageFreed += freed
	}
	if deleteBlobs != nil && len(exportKeys) > 0 {
		freed, err := deleteBlobs(ctx, exportKeys)
		if err != nil {
			return nil, lifecycle.NewPurgeError(projectID, "export_blobs", err)
		}
		stats.StorageFreed += freed
	}

	for _, id := range interactionIDs {
		delete(r.interactions, id)
	}
	stats.Interactions = len(interactionIDs)
	for _, id := range summaryIDs {
		delete(r.summaries, id)
	}
	stats.ChapterSummaries = len(summaryIDs)
	for _, id := range storyIDs {
		delete(r.stories, id)
	}
	stats.Stories = len(storyIDs)
	for _, id := range chapterIDs {
		delete(r.chapters, id)
	}
	stats.Chapters = len(chapterIDs)
	for _, id := range exportIDs {
		delete(r.exports, id)
	}
	stats.ExportRequests = len(exportIDs)

	stats.Roles = len(r.roles[projectID])
	delete(r.roles, projectID)
	for _, id := range subscriptionIDs {
		delete(r.subscriptions, id)
	}
	stats.Subscriptions = len(subscriptionIDs)
	for _, id := range invitationIDs {
		delete(r.invitations, id)
	}
	stats.Invitations = len(invitationIDs)

	delete(r.projects, projectID)

	return stats, nil
}

// Close releases resources held by the backend.
func (r *MemoryRepository) Close() error {
	return nil
}

// CountStories returns the number of stored stories (for testing).
func (r *MemoryRepository) CountStories() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stories)
}

// CountExports returns the number of stored export requests (for testing).
func (r *MemoryRepository) CountExports() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exports)
}

// sortByID orders results deterministically; map iteration order would
// otherwise leak into tests.
func sortByID[T any](items []T, key func(T) string) {
	sort.Slice(items, func(i, j int) bool { return key(items[i]) < key(items[j]) })
}

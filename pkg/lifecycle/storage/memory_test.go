package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

func TestMemoryRepository_ExportLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedProject(t, repo, "proj-1")

	now := time.Now().UTC()
	req := &lifecycle.ExportRequest{
		ID:            "exp-1",
		ProjectID:     "proj-1",
		FacilitatorID: "facilitator-1",
		Status:        lifecycle.ExportQueued,
		Options:       lifecycle.ExportOptions{IncludeTranscripts: true, Format: lifecycle.FormatDocument},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateExportRequest(ctx, req); err != nil {
		t.Fatalf("CreateExportRequest failed: %v", err)
	}

	if err := repo.UpdateExportProgress(ctx, "exp-1", lifecycle.ExportProcessing, 60, "Building artifact"); err != nil {
		t.Fatalf("UpdateExportProgress failed: %v", err)
	}
	loaded, err := repo.GetExportRequest(ctx, "exp-1")
	if err != nil {
		t.Fatalf("GetExportRequest failed: %v", err)
	}
	if loaded.Status != lifecycle.ExportProcessing || loaded.Progress != 60 {
		t.Errorf("Expected processing/60, got %s/%d", loaded.Status, loaded.Progress)
	}

	if err := repo.MarkExportFailed(ctx, "exp-1", "blob store unavailable"); err != nil {
		t.Fatalf("MarkExportFailed failed: %v", err)
	}
	loaded, _ = repo.GetExportRequest(ctx, "exp-1")
	if loaded.Status != lifecycle.ExportFailed || loaded.Error != "blob store unavailable" {
		t.Errorf("Expected failed with message, got %s/%q", loaded.Status, loaded.Error)
	}
	if loaded.DownloadURL != "" || loaded.ExpiresAt != nil {
		t.Error("Expected no download URL or expiry on failed export")
	}

	// A failed export cannot be expired.
	if err := repo.MarkExportExpired(ctx, "exp-1"); err == nil {
		t.Error("Expected error expiring a failed export")
	}
}

func TestMemoryRepository_ListExpiredExports(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedProject(t, repo, "proj-1")

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	for _, req := range []*lifecycle.ExportRequest{
		{ID: "exp-stale", ProjectID: "proj-1", FacilitatorID: "facilitator-1",
			Status: lifecycle.ExportReady, ExpiresAt: &past, CreatedAt: now, UpdatedAt: now},
		{ID: "exp-live", ProjectID: "proj-1", FacilitatorID: "facilitator-1",
			Status: lifecycle.ExportReady, ExpiresAt: &future, CreatedAt: now, UpdatedAt: now},
		{ID: "exp-failed", ProjectID: "proj-1", FacilitatorID: "facilitator-1",
			Status: lifecycle.ExportFailed, CreatedAt: now, UpdatedAt: now},
	} {
		req.Options = lifecycle.ExportOptions{IncludeTranscripts: true, Format: lifecycle.FormatArchive}
		if err := repo.CreateExportRequest(ctx, req); err != nil {
			t.Fatalf("CreateExportRequest failed: %v", err)
		}
	}

	expired, err := repo.ListExpiredExports(ctx, now)
	if err != nil {
		t.Fatalf("ListExpiredExports failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "exp-stale" {
		t.Fatalf("Expected only exp-stale, got %d requests", len(expired))
	}
}

func TestMemoryRepository_SweepScope(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.AddDate(0, -6, 0)

	seedProject(t, repo, "proj-active")

	archived := seedProject(t, repo, "proj-archived")
	archived.Status = lifecycle.ProjectArchived
	archived.ArchivedAt = &old
	if err := repo.PutProject(ctx, archived); err != nil {
		t.Fatalf("PutProject failed: %v", err)
	}

	for _, s := range []*lifecycle.Story{
		{ID: "old-archived", ProjectID: "proj-archived", Title: "a", CreatedAt: old, RecordedAt: old},
		{ID: "old-active", ProjectID: "proj-active", Title: "b", CreatedAt: old, RecordedAt: old},
		{ID: "old-orphan", ProjectID: "proj-gone", Title: "c", CreatedAt: old, RecordedAt: old},
	} {
		if err := repo.PutStory(ctx, s); err != nil {
			t.Fatalf("PutStory failed: %v", err)
		}
	}

	candidates, err := repo.ListStoriesBefore(ctx, SweepQuery{
		Cutoff: now.AddDate(0, -3, 0),
		Scope:  lifecycle.Scope{Archived: true},
	})
	if err != nil {
		t.Fatalf("ListStoriesBefore failed: %v", err)
	}
	ids := map[string]bool{}
	for _, s := range candidates {
		ids[s.ID] = true
	}
	if !ids["old-archived"] || !ids["old-orphan"] {
		t.Errorf("Expected archived and orphan stories as candidates, got %v", ids)
	}
	if ids["old-active"] {
		t.Error("Did not expect active-project story in archived scope")
	}
}

func TestMemoryRepository_PurgeProject_RollsBackOnBlobError(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedProject(t, repo, "proj-1")

	blobErr := errors.New("bucket unreachable")
	_, err := repo.PurgeProject(ctx, "proj-1", func(ctx context.Context, keys []string) (int64, error) {
		return 0, blobErr
	})
	if !errors.Is(err, blobErr) {
		t.Fatalf("Expected purge to surface the blob error, got %v", err)
	}

	if _, err := repo.GetProject(ctx, "proj-1"); err != nil {
		t.Errorf("Expected project to survive failed purge, got %v", err)
	}
	if repo.CountStories() != 2 {
		t.Errorf("Expected 2 stories to survive, got %d", repo.CountStories())
	}
	hasRole, _ := repo.HasProjectRole(ctx, "proj-1", "facilitator-1")
	if !hasRole {
		t.Error("Expected role to survive failed purge")
	}
}

func TestMemoryRepository_PurgeProject_Cascades(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	seedProject(t, repo, "proj-1")
	if err := repo.PutInteraction(ctx, &lifecycle.Interaction{
		ID: "int-1", ProjectID: "proj-1", StoryID: "proj-1-s1",
		AuthorID: "facilitator-1", Kind: "comment", Body: "wonderful", CreatedAt: now,
	}); err != nil {
		t.Fatalf("PutInteraction failed: %v", err)
	}

	stats, err := repo.PurgeProject(ctx, "proj-1", func(ctx context.Context, keys []string) (int64, error) {
		return int64(len(keys)) * 512, nil
	})
	if err != nil {
		t.Fatalf("PurgeProject failed: %v", err)
	}
	if stats.Stories != 2 || stats.Interactions != 1 || stats.Chapters != 1 || stats.Roles != 1 {
		t.Errorf("Unexpected purge stats: %+v", stats)
	}
	if stats.StorageFreed != 512 {
		t.Errorf("Expected 512 bytes freed for one audio blob, got %d", stats.StorageFreed)
	}
	if repo.CountStories() != 0 {
		t.Errorf("Expected no stories after purge, got %d", repo.CountStories())
	}
	if _, err := repo.GetProject(ctx, "proj-1"); !lifecycle.IsNotFound(err) {
		t.Errorf("Expected project gone after purge, got %v", err)
	}
}

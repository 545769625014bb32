package blob

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFilesystemStore_PutGetRoundTrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	url, err := store.Put(ctx, "exports/proj-1/archive.zip", []byte("zip-bytes"), "application/zip")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("Expected file:// URL without a base URL, got %q", url)
	}

	data, err := store.Get(ctx, "exports/proj-1/archive.zip")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(data, []byte("zip-bytes")) {
		t.Errorf("Expected round-tripped bytes, got %q", data)
	}

	size, err := store.Size(ctx, "exports/proj-1/archive.zip")
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != int64(len("zip-bytes")) {
		t.Errorf("Expected size %d, got %d", len("zip-bytes"), size)
	}
}

func TestFilesystemStore_PutUsesBaseURL(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "https://cdn.example.com/")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	url, err := store.Put(context.Background(), "exports/a.zip", []byte("x"), "application/zip")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "https://cdn.example.com/exports/a.zip" {
		t.Errorf("Expected base URL joined with key, got %q", url)
	}
}

func TestFilesystemStore_GetMissingKey(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	_, err = store.Get(context.Background(), "no/such/key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	var serr *StoreError
	if !errors.As(err, &serr) || serr.Backend != "filesystem" || serr.Operation != "get" {
		t.Errorf("Expected filesystem get StoreError, got %v", err)
	}
}

func TestFilesystemStore_Delete(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "exports/a.zip", []byte("x"), "application/zip"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "exports/a.zip"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "exports/a.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted key to be gone, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "exports/a.zip"); err != nil {
		t.Errorf("Expected missing-key delete to succeed, got %v", err)
	}
}

func TestFilesystemStore_TotalSize(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	puts := map[string][]byte{
		"exports/proj-1/a.zip": []byte("12345"),
		"exports/proj-1/b.zip": []byte("123"),
		"audio/proj-1/s-1.mp3": []byte("1234567890"),
	}
	for key, data := range puts {
		if _, err := store.Put(ctx, key, data, "application/octet-stream"); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	total, err := store.TotalSize(ctx, "exports/proj-1/")
	if err != nil {
		t.Fatalf("TotalSize failed: %v", err)
	}
	if total != 8 {
		t.Errorf("Expected prefix total 8, got %d", total)
	}

	empty, err := store.TotalSize(ctx, "exports/proj-2/")
	if err != nil {
		t.Fatalf("TotalSize failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("Expected empty prefix total 0, got %d", empty)
	}
}

package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore implements the Store interface on a local directory tree.
// Keys map directly to file paths under the root; Put creates parent
// directories as needed.
type FilesystemStore struct {
	root string

	// baseURL, when set, is prepended to keys to form download URLs.
	// Otherwise Put returns a file:// URL.
	baseURL string
}

// NewFilesystemStore creates a filesystem blob store rooted at dir.
func NewFilesystemStore(dir, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewStoreError("filesystem", "init", dir, err)
	}
	return &FilesystemStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FilesystemStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Get returns the object bytes for a key.
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewStoreError("filesystem", "get", key, ErrNotFound)
		}
		return nil, NewStoreError("filesystem", "get", key, err)
	}
	return data, nil
}

// Put stores the object and returns its download URL.
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", NewStoreError("filesystem", "put", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", NewStoreError("filesystem", "put", key, err)
	}

	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return "file://" + path, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewStoreError("filesystem", "delete", key, err)
	}
	return nil
}

// Size returns the object size in bytes.
func (s *FilesystemStore) Size(ctx context.Context, key string) (int64, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, NewStoreError("filesystem", "size", key, ErrNotFound)
		}
		return 0, NewStoreError("filesystem", "size", key, err)
	}
	return info.Size(), nil
}

// TotalSize returns the summed size of all objects under a key prefix.
func (s *FilesystemStore) TotalSize(ctx context.Context, prefix string) (int64, error) {
	var total int64
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(filepath.ToSlash(rel), prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, NewStoreError("filesystem", "total_size", prefix, err)
	}
	return total, nil
}

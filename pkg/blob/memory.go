package blob

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore implements the Store interface using an in-memory map.
// This implementation is intended for testing only.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// failGets/failPuts/failDeletes inject errors for the named keys,
	// exercising the builder's download-failure tolerance, the pipeline's
	// upload-failure path, and the purge rollback path.
	failGets    map[string]error
	failPuts    map[string]error
	failDeletes map[string]error
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:     make(map[string][]byte),
		failGets:    make(map[string]error),
		failPuts:    make(map[string]error),
		failDeletes: make(map[string]error),
	}
}

// Get returns the object bytes for a key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failGets[key]; ok {
		return nil, NewStoreError("memory", "get", key, err)
	}

	data, ok := s.objects[key]
	if !ok {
		return nil, NewStoreError("memory", "get", key, ErrNotFound)
	}

	// Return a copy to avoid mutation
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores the object and returns a memory:// URL for it.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failPuts[key]; ok {
		return "", NewStoreError("memory", "put", key, err)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored

	return "memory://" + key, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failDeletes[key]; ok {
		return NewStoreError("memory", "delete", key, err)
	}

	delete(s.objects, key)
	return nil
}

// Size returns the object size in bytes.
func (s *MemoryStore) Size(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return 0, NewStoreError("memory", "size", key, ErrNotFound)
	}
	return int64(len(data)), nil
}

// TotalSize returns the summed size of all objects under a key prefix.
func (s *MemoryStore) TotalSize(ctx context.Context, prefix string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			total += int64(len(data))
		}
	}
	return total, nil
}

// FailGet makes subsequent Get calls for key return err (for testing).
func (s *MemoryStore) FailGet(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGets[key] = err
}

// FailPut makes subsequent Put calls for key return err (for testing).
func (s *MemoryStore) FailPut(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts[key] = err
}

// FailDelete makes subsequent Delete calls for key return err (for testing).
func (s *MemoryStore) FailDelete(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeletes[key] = err
}

// Len returns the number of stored objects (for testing).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Has reports whether a key exists (for testing).
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

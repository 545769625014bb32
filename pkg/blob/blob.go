package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// Store is the gateway to binary object storage.
//
// All methods are blocking I/O boundaries and honor context cancellation
// where the backend supports it.
type Store interface {
	// Get returns the object bytes for a key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the object and returns its public download URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Size returns the object size in bytes.
	Size(ctx context.Context, key string) (int64, error)

	// TotalSize returns the summed size of all objects under a key prefix.
	// This backs the storage-usage figures in export manifests and
	// retention reports.
	TotalSize(ctx context.Context, prefix string) (int64, error)
}

// StoreError wraps a backend failure with the operation and key involved.
type StoreError struct {
	Backend   string // Backend type ("s3", "filesystem", "memory")
	Operation string // Operation that failed ("get", "put", "delete", "size")
	Key       string // Object key
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("blob store error [backend=%s, operation=%s, key=%s]: %v", e.Backend, e.Operation, e.Key, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError.
func NewStoreError(backend, operation, key string, cause error) *StoreError {
	return &StoreError{Backend: backend, Operation: operation, Key: key, Cause: cause}
}

package lifecycle

import (
	"errors"
	"fmt"
)

// ValidationError indicates an ExportOptions value that fails validation.
// It is surfaced synchronously to the CreateExport caller; nothing is
// persisted when it occurs.
type ValidationError struct {
	Field   string // Option field that failed ("format", "dateRange", ...)
	Message string // Human-readable reason
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid export options [%s]: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid export options: %s", e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AccessDeniedError indicates the facilitator holds no role on the project.
type AccessDeniedError struct {
	ProjectID     string
	FacilitatorID string
}

// Error implements the error interface.
func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied [project=%s, facilitator=%s]: no project role", e.ProjectID, e.FacilitatorID)
}

// NewAccessDeniedError creates a new AccessDeniedError.
func NewAccessDeniedError(projectID, facilitatorID string) *AccessDeniedError {
	return &AccessDeniedError{ProjectID: projectID, FacilitatorID: facilitatorID}
}

// NotFoundError indicates an unknown entity id.
type NotFoundError struct {
	Entity string // Entity kind ("project", "export", "story", ...)
	ID     string // Looked-up id
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found [id=%s]", e.Entity, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConflictError indicates an eligible in-flight export already exists for
// the same (project, facilitator) pair.
type ConflictError struct {
	ProjectID     string
	FacilitatorID string
	ExistingID    string // In-flight export request id, when known
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.ExistingID != "" {
		return fmt.Sprintf("export already in progress [project=%s, facilitator=%s, export=%s]", e.ProjectID, e.FacilitatorID, e.ExistingID)
	}
	return fmt.Sprintf("export already in progress [project=%s, facilitator=%s]", e.ProjectID, e.FacilitatorID)
}

// NewConflictError creates a new ConflictError.
func NewConflictError(projectID, facilitatorID, existingID string) *ConflictError {
	return &ConflictError{ProjectID: projectID, FacilitatorID: facilitatorID, ExistingID: existingID}
}

// StorageError represents an error from the repository backend.
type StorageError struct {
	Backend   string // Backend type ("sqlite", "memory")
	Operation string // Operation that failed ("create_export", "purge_project", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// BuildError represents a failure while assembling an export artifact.
// Per-file blob download failures are not BuildErrors; the builder swallows
// those and omits the file.
type BuildError struct {
	Format Format // Artifact format being built
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build error [format=%s]: %v", e.Format, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// NewBuildError creates a new BuildError.
func NewBuildError(format Format, cause error) *BuildError {
	return &BuildError{Format: format, Cause: cause}
}

// PurgeError represents a failure inside the atomic cascading purge. The
// enclosing transaction is rolled back, so no partial deletion survives it.
type PurgeError struct {
	ProjectID string
	Step      string // Purge step that failed ("stories", "blobs", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge error [project=%s, step=%s]: %v", e.ProjectID, e.Step, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PurgeError) Unwrap() error {
	return e.Cause
}

// NewPurgeError creates a new PurgeError.
func NewPurgeError(projectID, step string, cause error) *PurgeError {
	return &PurgeError{ProjectID: projectID, Step: step, Cause: cause}
}

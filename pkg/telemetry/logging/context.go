package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// ProjectIDKey is the context key for project identifiers.
	ProjectIDKey contextKey = "project_id"

	// ExportIDKey is the context key for export identifiers.
	ExportIDKey contextKey = "export_id"

	// UserKey is the context key for the requesting user.
	UserKey contextKey = "user"

	// PolicyKey is the context key for retention policy names.
	PolicyKey contextKey = "policy"
)

// WithProjectID adds a project identifier to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDKey, projectID)
}

// GetProjectID retrieves the project identifier from the context.
func GetProjectID(ctx context.Context) string {
	if v, ok := ctx.Value(ProjectIDKey).(string); ok {
		return v
	}
	return ""
}

// WithExportID adds an export identifier to the context.
func WithExportID(ctx context.Context, exportID string) context.Context {
	return context.WithValue(ctx, ExportIDKey, exportID)
}

// GetExportID retrieves the export identifier from the context.
func GetExportID(ctx context.Context) string {
	if v, ok := ctx.Value(ExportIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUser adds the requesting user to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the requesting user from the context.
func GetUser(ctx context.Context) string {
	if v, ok := ctx.Value(UserKey).(string); ok {
		return v
	}
	return ""
}

// WithPolicy adds a retention policy name to the context.
func WithPolicy(ctx context.Context, policy string) context.Context {
	return context.WithValue(ctx, PolicyKey, policy)
}

// GetPolicy retrieves the retention policy name from the context.
func GetPolicy(ctx context.Context) string {
	if v, ok := ctx.Value(PolicyKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger carrying every identifier present on the
// context.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if v := GetProjectID(ctx); v != "" {
		logger = logger.With("project_id", v)
	}
	if v := GetExportID(ctx); v != "" {
		logger = logger.With("export_id", v)
	}
	if v := GetUser(ctx); v != "" {
		logger = logger.With("user", v)
	}
	if v := GetPolicy(ctx); v != "" {
		logger = logger.With("policy", v)
	}
	return logger
}

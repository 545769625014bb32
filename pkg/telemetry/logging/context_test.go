package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"heirloom-hq/chronicle/pkg/config"
)

func TestContextHelpers_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithProjectID(ctx, "proj-1")
	ctx = WithExportID(ctx, "exp-1")
	ctx = WithUser(ctx, "facilitator-1")
	ctx = WithPolicy(ctx, "export-request-cleanup")

	if GetProjectID(ctx) != "proj-1" {
		t.Errorf("Expected proj-1, got %q", GetProjectID(ctx))
	}
	if GetExportID(ctx) != "exp-1" {
		t.Errorf("Expected exp-1, got %q", GetExportID(ctx))
	}
	if GetUser(ctx) != "facilitator-1" {
		t.Errorf("Expected facilitator-1, got %q", GetUser(ctx))
	}
	if GetPolicy(ctx) != "export-request-cleanup" {
		t.Errorf("Expected policy name, got %q", GetPolicy(ctx))
	}
}

func TestContextHelpers_EmptyContext(t *testing.T) {
	ctx := context.Background()
	if GetProjectID(ctx) != "" || GetExportID(ctx) != "" || GetUser(ctx) != "" || GetPolicy(ctx) != "" {
		t.Error("Expected empty values from bare context")
	}
}

func TestFromContext_CarriesIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	ctx := WithExportID(WithProjectID(context.Background(), "proj-1"), "exp-1")
	FromContext(ctx, logger).Info("step done")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse record: %v", err)
	}
	if record["project_id"] != "proj-1" || record["export_id"] != "exp-1" {
		t.Errorf("Expected context identifiers in record, got %v", record)
	}
}

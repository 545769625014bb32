package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"heirloom-hq/chronicle/pkg/config"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("export completed", "export_id", "exp-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "export completed" {
		t.Errorf("Expected message, got %v", record["msg"])
	}
	if record["export_id"] != "exp-1" {
		t.Errorf("Expected export_id attribute, got %v", record["export_id"])
	}
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Info("retention pass finished")
	if !strings.Contains(buf.String(), "retention pass finished") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("Expected info suppressed at warn level, got %q", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("Expected warn to be emitted")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	Component("exporter").Info("pipeline started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse record: %v", err)
	}
	if record["component"] != "exporter" {
		t.Errorf("Expected component attribute, got %v", record["component"])
	}
}

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLogLines(t *testing.T, dir string) []map[string]any {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, "pipeline.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not valid JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Info("strategy run started", "snapshot_id", "snap-1")

	entries := readLogLines(t, dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0]["msg"] != "strategy run started" {
		t.Errorf("unexpected msg: %v", entries[0]["msg"])
	}
	if entries[0]["snapshot_id"] != "snap-1" {
		t.Errorf("unexpected snapshot_id: %v", entries[0]["snapshot_id"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := readLogLines(t, dir)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at WARN level, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn message" || entries[1]["msg"] != "error message" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestLogger_WithSnapshotPropagates(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	child := logger.WithSnapshot("snap-42").WithStage("synthesis")
	child.Info("stage finished")

	entries := readLogLines(t, dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["snapshot_id"] != "snap-42" {
		t.Errorf("child logger should carry snapshot_id, got %v", entries[0]["snapshot_id"])
	}
	if entries[0]["stage"] != "synthesis" {
		t.Errorf("child logger should carry stage, got %v", entries[0]["stage"])
	}
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	_ = logger.With("provider", "anthropic")
	logger.Info("parent entry")

	entries := readLogLines(t, dir)
	if _, ok := entries[0]["provider"]; ok {
		t.Error("parent logger should not inherit child attributes")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()

	// Must not panic and must be usable without a file.
	logger.Info("discarded")
	logger.WithSnapshot("snap-1").Error("also discarded")

	if err := logger.Close(); err != nil {
		t.Errorf("Close on NopLogger should be a no-op, got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEBUG", "DEBUG"},
		{"debug", "DEBUG"},
		{"ERROR", "ERROR"},
		{"bogus", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got.String() != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

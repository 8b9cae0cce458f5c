package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLogLines(t *testing.T, runDir string) []map[string]any {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(runDir, "run.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parsing log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_WritesJSONToRunDir(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("step complete", "step", "analyze.produce")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readLogLines(t, dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0]["msg"] != "step complete" {
		t.Errorf("msg = %v, want %q", entries[0]["msg"], "step complete")
	}
	if entries[0]["step"] != "analyze.produce" {
		t.Errorf("step = %v, want %q", entries[0]["step"], "analyze.produce")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	_ = logger.Close()

	entries := readLogLines(t, dir)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at WARN level, got %d", len(entries))
	}
}

func TestLogger_ChildAttributes(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	child := logger.WithRun("run-1").WithFeature("feat-9").WithStep("plan.validate")
	child.Info("validated")
	_ = logger.Close()

	entries := readLogLines(t, dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", e["run_id"])
	}
	if e["feature_id"] != "feat-9" {
		t.Errorf("feature_id = %v, want feat-9", e["feature_id"])
	}
	if e["step"] != "plan.validate" {
		t.Errorf("step = %v, want plan.validate", e["step"])
	}
}

func TestLogger_ChildDoesNotMutateParent(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	_ = logger.WithRun("run-child")
	logger.Info("parent message")
	_ = logger.Close()

	entries := readLogLines(t, dir)
	if _, ok := entries[0]["run_id"]; ok {
		t.Error("parent logger should not carry the child's run_id attribute")
	}
}

func TestParseLevel_Defaults(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	logger := NopLogger()
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close on NopLogger: %v", err)
	}
}

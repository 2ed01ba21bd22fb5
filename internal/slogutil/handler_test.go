package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("tool executed", "tool", "analyze_code_metrics", "elapsedMs", 42)

	output := buf.String()
	for _, want := range []string{"[info]", "tool executed", " | ", "tool=analyze_code_metrics", "elapsedMs=42"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestLineHandler_QuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("question", "text", "what dependencies does this use?")

	if !strings.Contains(buf.String(), `text="what dependencies does this use?"`) {
		t.Errorf("expected quoted value, got: %s", buf.String())
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn should be filtered: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
}

func TestLineHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).WithGroup("dispatch").With("matched", 2)
	logger.Info("selected")

	if !strings.Contains(buf.String(), "dispatch.matched=2") {
		t.Errorf("expected grouped key, got: %s", buf.String())
	}
}

func TestLineHandler_GroupValues(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("ran", slog.Group("result", "status", "ok", slog.Int("ms", 3)), slog.String("", "dropped"))

	out := buf.String()
	if !strings.Contains(out, "result.status=ok result.ms=3") {
		t.Errorf("expected flattened group, got: %s", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("empty keys should be dropped: %s", out)
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{3, false, slog.LevelDebug},
		{2, true, Silent},
	}
	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.want)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	if LevelFromString("DEBUG") != slog.LevelDebug {
		t.Error("DEBUG should map to debug")
	}
	if LevelFromString("nonsense") != slog.LevelInfo {
		t.Error("unknown level should map to info")
	}
}

func TestOpen_TeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "codeqa.log")

	logger, closer, err := Open(&buf, Options{Level: slog.LevelInfo, File: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected message in both sinks, file=%q stderr=%q", data, buf.String())
	}
}

func TestOpen_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Open(&buf, Options{Format: "json", Level: slog.LevelInfo})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}
}

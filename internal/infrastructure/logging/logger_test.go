package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
)

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	logger.Info("reading delivered", "replayed", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if entry["msg"] != "reading delivered" {
		t.Errorf("msg = %v, want %q", entry["msg"], "reading delivered")
	}
	if entry["service"] != "aqlogger" {
		t.Errorf("service = %v, want aqlogger", entry["service"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", entry["version"])
	}
	if entry["replayed"] != float64(3) {
		t.Errorf("replayed = %v, want 3", entry["replayed"])
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "dev", &buf)

	logger.Debug("state change", "to", "connected")

	out := buf.String()
	if !strings.Contains(out, "msg=\"state change\"") {
		t.Errorf("text output missing message: %q", out)
	}
	if !strings.Contains(out, "to=connected") {
		t.Errorf("text output missing attribute: %q", out)
	}
}

func TestNewWithWriter_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "console"}, "dev", &buf)

	logger.Warn("store unreachable", "host", "db")

	out := buf.String()
	if !strings.Contains(out, "store unreachable") {
		t.Errorf("console output missing message: %q", out)
	}
	// A bytes.Buffer is not a terminal, so no ANSI escapes are emitted.
	if strings.Contains(out, "\x1b[") {
		t.Errorf("console output to non-terminal contains colour codes: %q", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, "dev", &buf)

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	logger.Error("kept")
	if buf.Len() == 0 {
		t.Error("error not logged at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug level", input: "debug", expected: slog.LevelDebug},
		{name: "info level", input: "info", expected: slog.LevelInfo},
		{name: "warn level", input: "warn", expected: slog.LevelWarn},
		{name: "warning level", input: "warning", expected: slog.LevelWarn},
		{name: "error level", input: "error", expected: slog.LevelError},
		{name: "unknown defaults to info", input: "unknown", expected: slog.LevelInfo},
		{name: "empty defaults to info", input: "", expected: slog.LevelInfo},
		{name: "case insensitive", input: "DEBUG", expected: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "dev", &buf)
	child := logger.With("component", "forwarder")

	if child == logger {
		t.Error("expected child logger to be different from parent")
	}

	child.Info("hello")
	if !strings.Contains(buf.String(), `"component":"forwarder"`) {
		t.Errorf("child output missing component: %q", buf.String())
	}
}

func TestDefaultAndNop(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
	nop := Nop()
	if nop == nil {
		t.Fatal("expected non-nil nop logger")
	}
	nop.Error("discarded")
}

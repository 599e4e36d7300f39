package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_BaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "hello", F("subject", "u1"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["msg"] != "hello" || e["level"] != "info" || e["subject"] != "u1" {
		t.Errorf("entry = %v", e)
	}
	if _, ok := e["timestamp"].(string); !ok {
		t.Errorf("timestamp missing: %v", e)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("entries = %v", entries)
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).With(F("signing_secret", "hunter2"))

	logger.Warn(context.Background(), "auth failed",
		F("Authorization", "Bearer abc.def.ghi"),
		F("token", "abc.def.ghi"),
		F("reason", "expired"),
	)

	out := buf.String()
	for _, leaked := range []string{"hunter2", "abc.def.ghi"} {
		if strings.Contains(out, leaked) {
			t.Errorf("log output leaked %q: %s", leaked, out)
		}
	}
	e := decodeLines(t, &buf)[0]
	if e["reason"] != "expired" {
		t.Errorf("reason = %v, want expired", e["reason"])
	}
	if e["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization = %v, want [REDACTED]", e["Authorization"])
	}
}

func TestLogger_WithOperation(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	scoped := base.WithOperation("household.get")

	scoped.Info(context.Background(), "scoped")
	base.Info(context.Background(), "base")

	entries := decodeLines(t, &buf)
	if entries[0]["operation"] != "household.get" {
		t.Errorf("operation = %v, want household.get", entries[0]["operation"])
	}
	if _, ok := entries[1]["operation"]; ok {
		t.Error("WithOperation leaked into parent logger")
	}
}

func TestLogger_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.Info(ctx, "with id")

	if got := decodeLines(t, &buf)[0]["request_id"]; got != "req-42" {
		t.Errorf("request_id = %v, want req-42", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

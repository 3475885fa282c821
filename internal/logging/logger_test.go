package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestOrNopHandlesTypedNilPointers(t *testing.T) {
	var writer *WriterLogger
	var logger Logger = writer
	if !IsNil(logger) {
		t.Fatalf("expected typed nil pointer to be detected")
	}
	safe := OrNop(logger)
	if IsNil(safe) {
		t.Fatalf("expected OrNop to return a usable logger")
	}
	safe.Info("hello %s", "world") // should not panic
}

func TestWriterLoggerFormatsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWriterLogger(buf, LevelDebug)
	logger.clock = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	logger.NewComponentLogger("engine").Info("pass %d committed", 7)

	got := buf.String()
	if !strings.Contains(got, "2026-03-01 12:00:00 [INFO] [engine] pass 7 committed") {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestWriterLoggerFiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWriterLogger(buf, LevelWarn)

	logger.Debug("noise")
	logger.Info("noise")
	logger.Warn("kept")

	got := buf.String()
	if strings.Contains(got, "noise") {
		t.Fatalf("expected debug/info suppressed, got %q", got)
	}
	if !strings.Contains(got, "kept") {
		t.Fatalf("expected warn emitted, got %q", got)
	}
}

func TestRedactMasksCredentials(t *testing.T) {
	cases := []struct {
		name string
		in   string
		leak string
	}{
		{"bare openai key", "loaded sk-abcdefghijklmnop1234 for openai", "sk-abcdefghijklmnop1234"},
		{"json field", `store payload {"apiKey": "super-secret-value-42"}`, "super-secret-value-42"},
		{"env assignment", "ANTHROPIC_API_KEY=topsecret-environment-value", "topsecret-environment-value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Redact(tc.in)
			if strings.Contains(got, tc.leak) {
				t.Fatalf("secret leaked: %q", got)
			}
			if !strings.Contains(got, redactedPlaceholder) {
				t.Fatalf("expected placeholder in %q", got)
			}
		})
	}
}

func TestMultiFansOut(t *testing.T) {
	a := &bytes.Buffer{}
	b := &bytes.Buffer{}
	logger := Multi(NewWriterLogger(a, LevelDebug), nil, NewWriterLogger(b, LevelDebug))

	logger.Error("boom %q", "x")

	for name, buf := range map[string]*bytes.Buffer{"a": a, "b": b} {
		if !strings.Contains(buf.String(), `boom "x"`) {
			t.Fatalf("sink %s missed the line: %q", name, buf.String())
		}
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("DEBUG"); got != LevelDebug {
		t.Fatalf("ParseLevel(DEBUG) = %v", got)
	}
	if got := ParseLevel("warning"); got != LevelWarn {
		t.Fatalf("ParseLevel(warning) = %v", got)
	}
	if got := ParseLevel("nonsense"); got != LevelInfo {
		t.Fatalf("ParseLevel(nonsense) = %v, want info default", got)
	}
}

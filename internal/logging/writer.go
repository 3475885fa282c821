package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// WriterLogger writes leveled, timestamped lines to an io.Writer. Credential
// material is redacted before any line is emitted.
type WriterLogger struct {
	mu        sync.Mutex
	out       io.Writer
	level     Level
	component string
	clock     func() time.Time
}

// NewWriterLogger returns a logger emitting to out at the given minimum level.
func NewWriterLogger(out io.Writer, level Level) *WriterLogger {
	if out == nil {
		out = os.Stderr
	}
	return &WriterLogger{out: out, level: level, clock: time.Now}
}

// NewFileLogger opens (or creates) path in append mode and logs to it.
func NewFileLogger(path string, level Level) (*WriterLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWriterLogger(file, level), nil
}

// NewComponentLogger clones the logger with a [component] prefix on every line.
func (l *WriterLogger) NewComponentLogger(component string) *WriterLogger {
	return &WriterLogger{out: l.out, level: l.level, component: component, clock: l.clock}
}

// SetLevel adjusts the minimum level at runtime.
func (l *WriterLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *WriterLogger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	component := l.component
	if component == "" {
		component = "switchboard"
	}
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] [%s] %s\n",
		l.clock().Format("2006-01-02 15:04:05"), level, component, message)
	fmt.Fprint(l.out, Redact(line))
}

func (l *WriterLogger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *WriterLogger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *WriterLogger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *WriterLogger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

var _ Logger = (*WriterLogger)(nil)

const redactedPlaceholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	// Bare provider keys (OpenAI-style sk-..., Anthropic sk-ant-...).
	regexp.MustCompile(`\bsk-[A-Za-z0-9\-_]{16,}`),
	// key=value / "key": "value" shapes for credential-ish field names.
	regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret|authorization)["']?\s*[:=]\s*)(?:Bearer\s+)?["']?[A-Za-z0-9\-\._]{8,}["']?`),
}

// Redact masks credential material in a log line. Values never round-trip
// through logs even when callers interpolate raw store contents.
func Redact(line string) string {
	sanitized := secretPatterns[0].ReplaceAllString(line, redactedPlaceholder)
	sanitized = secretPatterns[1].ReplaceAllString(sanitized, "${1}"+redactedPlaceholder)
	return sanitized
}

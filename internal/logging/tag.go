package logging

import "strconv"

// WithTag returns a logger that prefixes every line with "key=value".
// The engine tags pass logs with their generation id this way.
func WithTag(logger Logger, key, value string) Logger {
	if IsNil(logger) {
		return Nop()
	}
	if key == "" || value == "" {
		return logger
	}
	return &tagLogger{logger: logger, prefix: key + "=" + value + " "}
}

// WithGeneration tags a logger with a resolution pass generation id.
func WithGeneration(logger Logger, generation uint64) Logger {
	return WithTag(logger, "gen", strconv.FormatUint(generation, 10))
}

type tagLogger struct {
	logger Logger
	prefix string
}

func (l *tagLogger) Debug(format string, args ...any) {
	l.logger.Debug(l.prefix+format, args...)
}

func (l *tagLogger) Info(format string, args ...any) {
	l.logger.Info(l.prefix+format, args...)
}

func (l *tagLogger) Warn(format string, args ...any) {
	l.logger.Warn(l.prefix+format, args...)
}

func (l *tagLogger) Error(format string, args ...any) {
	l.logger.Error(l.prefix+format, args...)
}

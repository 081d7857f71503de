// Package logging provides structured logging using zap
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// NewDefaultLogger creates a logger with default configuration using zap
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// InitGlobalLogger installs the process-wide logger. Output goes to stdout unless
// logFile is set, in which case entries are appended to that file.
func InitGlobalLogger(level, logFile string) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		out = file
	}

	logger, err := NewZapLogger(LogConfig{
		Level:  ParseLevel(level),
		Output: out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetGlobalLogger(logger)

	logger.Info("Logger initialized",
		Field{"level", ParseLevel(level).String()},
		Field{"log_file", logFile},
	)
	return nil
}

// MustSync flushes any buffered log entries for zap loggers
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// WithContext is a convenience function to add context to the global logger
func WithContext(ctx context.Context) Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithFields is a convenience function to add fields to the global logger
func WithFields(fields ...Field) Logger {
	return GetGlobalLogger().WithFields(fields...)
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

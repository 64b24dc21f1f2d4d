package bitsieve

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/bitsieve/model"
)

// Logger wraps slog.Logger with bitsieve-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithGeneration adds a generation field to the logger.
func (l *Logger) WithGeneration(gen model.Generation) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", string(gen)),
	}
}

// WithQuery adds a query field to the logger.
func (l *Logger) WithQuery(q string) *Logger {
	return &Logger{
		Logger: l.Logger.With("query", q),
	}
}

// LogSelect logs a select operation.
func (l *Logger) LogSelect(ctx context.Context, requested, misses, matches int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "select failed",
			"requested", requested,
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	if misses > 0 {
		l.DebugContext(ctx, "select completed with misses",
			"requested", requested,
			"misses", misses,
			"matches", matches,
			"elapsed", elapsed,
		)
		return
	}
	l.DebugContext(ctx, "select completed",
		"requested", requested,
		"matches", matches,
		"elapsed", elapsed,
	)
}

// LogRefresh logs a refresh operation.
func (l *Logger) LogRefresh(ctx context.Context, gen model.Generation, changed bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "refresh failed",
			"error", err,
		)
		return
	}
	if changed {
		l.InfoContext(ctx, "refresh published new generation",
			"generation", string(gen),
		)
	}
}

// LogAppend logs an ingest operation.
func (l *Logger) LogAppend(ctx context.Context, docs int, gen model.Generation, err error) {
	if err != nil {
		l.ErrorContext(ctx, "append failed",
			"docs", docs,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "append committed",
		"docs", docs,
		"generation", string(gen),
	)
}

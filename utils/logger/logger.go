// Package logger provides the package-level structured logger used
// across the engine, matching the call shape the command-line entry
// point already expects (logger.Info(...), logger.Error(err)).
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/mdobak/go-xerrors"
)

var log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLevel adjusts the minimum logged level at runtime (e.g. for a
// -verbose flag).
func SetLevel(level slog.Level) {
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Info logs an informational message with optional structured args.
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Error logs err, wrapping it with go-xerrors first so the log record
// carries a stack trace if the handler chooses to render one.
func Error(err error) {
	log.ErrorContext(context.Background(), err.Error(), slog.Any("error", xerrors.New(err)))
}

// Debug logs a debug-level message with optional structured args.
func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

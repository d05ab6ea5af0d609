// Package logger provides structured logging using Go's log/slog.
// It sets up a JSON handler with service-level context and propagates a
// per-run correlation id through context.Context.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// WithRunID stores a run correlation id in the context for downstream
// propagation across the locator, synchronizer, and verifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID extracts the run id from context. Returns "" if not set.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// NewRunID builds a run correlation id from a contract symbol and a
// trade date, e.g. "ESZ5-2026-03-05".
func NewRunID(contract, date string) string {
	return fmt.Sprintf("%s-%s", contract, date)
}

// WithTrace returns slog attributes including the run id from context.
// Usage: slog.InfoContext(ctx, "msg", logger.WithTrace(ctx)...)
func WithTrace(ctx context.Context) []any {
	rid := RunID(ctx)
	if rid == "" {
		return nil
	}
	return []any{slog.String("run_id", rid)}
}

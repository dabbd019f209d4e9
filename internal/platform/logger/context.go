package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type so only this package can place loggers in a
// context.
type contextKey struct{}

// WithLogger returns a copy of ctx carrying the given logger. Middleware
// uses this to make request-scoped loggers (with trace IDs attached)
// available to everything downstream.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger carried by ctx, or the process default
// logger when none was attached. It never returns nil.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger carried by ctx, the provided
// fallback when none was attached, or the process default when the fallback
// is nil too. Components hold a fallback so they stay usable outside a
// request scope.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// Package xlog carries a structured logger through a request's context so
// every layer of the optimizer pipeline logs with the same request-scoped
// fields without threading a logger parameter through every call.
package xlog

import (
	"context"
	"log/slog"
	"os"
)

var (
	defaultLevel  slog.LevelVar
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     &defaultLevel,
	}))
)

func init() {
	defaultLevel.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger carried on ctx, or the package default if none was
// attached with With.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With attaches logger to ctx, returning the derived context.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithFields attaches the given key/value pairs to the logger already
// carried on ctx and returns the derived context, so callers down the
// pipeline inherit the request's run ID, scenario name, and so on.
func WithFields(ctx context.Context, args ...any) context.Context {
	return With(ctx, Ctx(ctx).With(args...))
}

// SetDefaultLevel adjusts the package default logger's level, e.g. from a
// --verbose CLI flag.
func SetDefaultLevel(level slog.Level) {
	defaultLevel.Set(level)
}

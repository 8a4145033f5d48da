// Package nplog carries the zerolog logger through a context.
package nplog

import (
	"context"

	"github.com/aidarkhanov/nanoid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logPtr struct{}

type runIDKey struct{}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logPtr{}, logger)
}

// WithRunID tags the context's logger with a fresh run id
func WithRunID(ctx context.Context) (context.Context, string) {
	runID := nanoid.New()
	logger := Log(ctx).With().Str("run", runID).Logger()

	ctx = context.WithValue(ctx, runIDKey{}, runID)
	return WithLogger(ctx, &logger), runID
}

// RunID returns the id set by WithRunID or an empty string
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Log returns the logger attached to ctx or the global logger if there is none
func Log(ctx context.Context) *zerolog.Logger {
	logger := ctx.Value(logPtr{})
	if logger == nil {
		return &log.Logger
	}

	return logger.(*zerolog.Logger)
}

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const runIDKey contextKey = "run_id"

// NewRunID returns a fresh identifier for one analysis run
func NewRunID() string {
	return uuid.New().String()
}

// ContextWithRunID attaches a run id to ctx
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run id of ctx, or ""
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger tagged with the run id of ctx
//
//	logging.Ctx(ctx).Debug().Str("module", "visual").Msg("done")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := RunIDFromContext(ctx); id != "" {
		l = l.With().Str(string(runIDKey), id).Logger()
	}
	return &l
}

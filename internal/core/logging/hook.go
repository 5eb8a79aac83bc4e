package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts project and invocation_id from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if project := GetProject(ctx); project != "" {
		e.Str("project", project)
	}

	if id := GetInvocationID(ctx); id != "" {
		e.Str("invocation_id", id)
	}
}

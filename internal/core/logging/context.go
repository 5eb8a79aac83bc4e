package logging

import "context"

type contextKey string

const (
	projectKey    contextKey = "project"
	invocationKey contextKey = "invocation_id"
)

// WithProject adds a WordPress project name to the context.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, projectKey, project)
}

// WithInvocationID adds the id of the current CLI invocation to the context.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey, id)
}

// GetProject retrieves the project name from the context.
// Returns empty string if not present.
func GetProject(ctx context.Context) string {
	if p, ok := ctx.Value(projectKey).(string); ok {
		return p
	}
	return ""
}

// GetInvocationID retrieves the invocation ID from the context.
// Returns empty string if not present.
func GetInvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationKey).(string); ok {
		return id
	}
	return ""
}

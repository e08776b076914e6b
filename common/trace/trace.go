// Package trace provides trace and thread identifiers and their context
// propagation, so every log line emitted during a turn can be correlated with
// the conversation thread it belongs to.
package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type traceKey struct{}

type threadKey struct{}

// GenerateID returns a new trace ID for a single turn.
func GenerateID() string {
	return "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewThreadID returns a new conversation thread identifier.
func NewThreadID() string {
	return uuid.NewString()
}

// WithTraceID returns a child context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}

// WithThreadID returns a child context carrying the conversation thread ID.
func WithThreadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, threadKey{}, id)
}

// ThreadFromContext extracts the thread ID from ctx, returning "" if absent.
func ThreadFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(threadKey{}).(string); ok {
		return v
	}
	return ""
}

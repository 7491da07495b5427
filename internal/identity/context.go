package identity

import (
	"context"

	"github.com/google/uuid"
)

// Caller is the opaque identity attached to every request. Credential
// verification happens in the auth middleware; everything downstream
// only cares about the ID.
type Caller struct {
	ID     uuid.UUID
	Source string // "bearer", "apikey", or "worker"
}

type contextKey string

const callerKey contextKey = "caller"

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

func IDFromContext(ctx context.Context) uuid.UUID {
	if c, ok := FromContext(ctx); ok {
		return c.ID
	}
	return uuid.Nil
}

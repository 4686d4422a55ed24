// Package reqctx carries per-request values (request ID, caller identity)
// on a context.Context so that logging and handlers read them the same way.
package reqctx

import (
	"context"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/google/uuid"
)

type (
	requestIDKey struct{}
	identityKey  struct{}
)

// NewRequestID generates a random UUID v4 request ID.
func NewRequestID() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns "" if absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Identity reports false when no verified identity was attached.
func Identity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok && id.UserID != ""
}

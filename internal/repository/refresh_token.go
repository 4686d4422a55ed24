package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
)

type RefreshTokenRepository interface {
	Insert(ctx context.Context, token *domain.RefreshToken) error
	// FindByHash returns domain.ErrUnknownToken when no row matches.
	FindByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Rotate revokes the token only if it is still active at now, inserts next
	// for the same user, and returns the revoked token. Both writes commit
	// together or not at all. Concurrent callers presenting the same token see
	// at most one success; the rest get domain.ErrTokenNotActive.
	Rotate(ctx context.Context, tokenHash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error)

	// MarkRevoked is idempotent; it returns domain.ErrUnknownToken only when
	// the token never existed.
	MarkRevoked(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int, error)
}

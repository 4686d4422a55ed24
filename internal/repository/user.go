package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
)

type UserRepository interface {
	// Create fails with domain.ErrEmailTaken when the email already exists
	// (compared case-insensitively).
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateNames(ctx context.Context, id, firstName, lastName string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// VerifyEmail consumes an unexpired verification token in one conditional update.
	VerifyEmail(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, role, first_name, last_name, email_verified,
	verification_token_hash, verification_expires_at, created_at, updated_at`

type UserRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewUserRepository(pool *pgxpool.Pool, timeout time.Duration) *UserRepository {
	return &UserRepository{pool: pool, timeout: timeout}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO users (
			email, password_hash, role, first_name, last_name,
			verification_token_hash, verification_expires_at
		) VALUES (LOWER($1), $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName,
		u.VerificationTokenHash, u.VerificationExpiresAt,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) UpdateNames(ctx context.Context, id, firstName, lastName string) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, updated_at = NOW() WHERE id = $1`,
		id, firstName, lastName)
	if err != nil {
		return fmt.Errorf("update names: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// VerifyEmail claims the token atomically; a second use matches no row.
func (r *UserRepository) VerifyEmail(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE users
		SET    email_verified          = TRUE,
		       verification_token_hash = NULL,
		       verification_expires_at = NULL,
		       updated_at              = NOW()
		WHERE  verification_token_hash = $1
		  AND  verification_expires_at > $2
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidVerificationToken
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    verification_token_hash = NULL,
		       verification_expires_at = NULL,
		       updated_at              = NOW()
		WHERE  verification_token_hash IS NOT NULL
		  AND  verification_expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("clear verification tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.EmailVerified,
		&u.VerificationTokenHash, &u.VerificationExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

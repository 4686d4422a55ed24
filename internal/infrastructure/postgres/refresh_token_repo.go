package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const refreshTokenColumns = `id, user_id, token_hash, expires_at, created_at,
	revoked, revoked_at, user_agent, ip`

type RefreshTokenRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewRefreshTokenRepository(pool *pgxpool.Pool, timeout time.Duration) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool, timeout: timeout}
}

func (r *RefreshTokenRepository) Insert(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.UserAgent, t.IP,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return scanRefreshToken(row)
}

// Rotate revokes the presented token and inserts next in one transaction.
// The UPDATE is guarded by the active-token predicate; under READ COMMITTED a
// second concurrent UPDATE re-evaluates it after the first commits and matches
// nothing. Any failure rolls back, leaving the presented token usable.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, tokenHash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rotate: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET    revoked    = TRUE,
		       revoked_at = $2
		WHERE  token_hash = $1
		  AND  NOT revoked
		  AND  expires_at > $2
		RETURNING `+refreshTokenColumns, tokenHash, now)

	old, err := scanRefreshToken(row)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownToken) {
			return nil, domain.ErrTokenNotActive
		}
		return nil, err
	}

	next.UserID = old.UserID
	err = tx.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt, next.UserAgent, next.IP,
	).Scan(&next.ID)
	if err != nil {
		return nil, fmt.Errorf("insert rotated refresh token: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rotate: %w", err)
	}
	return old, nil
}

// MarkRevoked keeps the first revocation time when called again.
func (r *RefreshTokenRepository) MarkRevoked(ctx context.Context, tokenHash string, now time.Time) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET    revoked    = TRUE,
		       revoked_at = COALESCE(revoked_at, $2)
		WHERE  token_hash = $1`, tokenHash, now)
	if err != nil {
		return fmt.Errorf("mark refresh token revoked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownToken
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET    revoked    = TRUE,
		       revoked_at = $2
		WHERE  user_id = $1 AND NOT revoked`, userID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRefreshToken(row rowScanner) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := row.Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
		&t.Revoked, &t.RevokedAt, &t.UserAgent, &t.IP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownToken
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

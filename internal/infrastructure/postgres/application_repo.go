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

const applicationColumns = `id, job_id, candidate_id, cover_letter, status, created_at, updated_at`

type ApplicationRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewApplicationRepository(pool *pgxpool.Pool, timeout time.Duration) *ApplicationRepository {
	return &ApplicationRepository{pool: pool, timeout: timeout}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO applications (job_id, candidate_id, cover_letter, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+applicationColumns,
		a.JobID, a.CandidateID, a.CoverLetter, a.Status)

	created, err := scanApplication(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrAlreadyApplied
		}
		return nil, err
	}
	return created, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	return scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
}

func (r *ApplicationRepository) ListByCandidate(ctx context.Context, candidateID string) ([]*domain.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
}

func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]*domain.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
}

// UpdateStatus refuses to move an application out of a final status, even
// if it became final between the caller's read and this write.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		UPDATE applications
		SET    status = $2, updated_at = NOW()
		WHERE  id = $1
		  AND  status NOT IN ('accepted', 'rejected', 'withdrawn')
		RETURNING `+applicationColumns, id, status)

	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return nil, domain.ErrInvalidStatusChange
		}
		return nil, err
	}
	return a, nil
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Application, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []*domain.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var a domain.Application
	err := row.Scan(&a.ID, &a.JobID, &a.CandidateID, &a.CoverLetter, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return &a, nil
}

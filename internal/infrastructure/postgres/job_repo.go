package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, employer_id, title, description, location, remote, employment_type,
	salary_min, salary_max, status, closes_at, created_at, updated_at`

type JobRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewJobRepository(pool *pgxpool.Pool, timeout time.Duration) *JobRepository {
	return &JobRepository{pool: pool, timeout: timeout}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO jobs (
			employer_id, title, description, location, remote,
			employment_type, salary_min, salary_max, status, closes_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + jobColumns

	row := r.pool.QueryRow(ctx, query,
		job.EmployerID, job.Title, job.Description, job.Location, job.Remote,
		job.EmploymentType, job.SalaryMin, job.SalaryMax, job.Status, job.ClosesAt,
	)
	return scanJob(row)
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (r *JobRepository) Update(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE jobs
		SET    title           = $3,
		       description     = $4,
		       location        = $5,
		       remote          = $6,
		       employment_type = $7,
		       salary_min      = $8,
		       salary_max      = $9,
		       closes_at       = $10,
		       updated_at      = NOW()
		WHERE  id = $1 AND employer_id = $2
		RETURNING ` + jobColumns

	row := r.pool.QueryRow(ctx, query,
		job.ID, job.EmployerID, job.Title, job.Description, job.Location, job.Remote,
		job.EmploymentType, job.SalaryMin, job.SalaryMax, job.ClosesAt,
	)
	return scanJob(row)
}

func (r *JobRepository) Close(ctx context.Context, id, employerID string) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = 'closed', updated_at = NOW()
		WHERE id = $1 AND employer_id = $2`, id, employerID)
	if err != nil {
		return fmt.Errorf("close job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) CloseExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET    status = 'closed', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE  status = 'open'
			  AND  closes_at IS NOT NULL
			  AND  closes_at <= $1
			ORDER BY closes_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, now, limit)
	if err != nil {
		return 0, fmt.Errorf("close expired jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// List without EmployerID shows open postings only; with it, every posting
// of that employer.
func (r *JobRepository) List(ctx context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	var args []any
	var where []string
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if input.EmployerID != "" {
		where = append(where, "employer_id = "+arg(input.EmployerID))
	} else {
		where = append(where, "status = 'open'")
	}
	if input.Query != "" {
		p := arg("%" + input.Query + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if input.Location != "" {
		where = append(where, "location ILIKE "+arg("%"+input.Location+"%"))
	}
	if input.EmploymentType != "" {
		where = append(where, "employment_type = "+arg(input.EmploymentType))
	}
	if input.CursorTime != nil {
		t := arg(*input.CursorTime)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", t, arg(input.CursorID)))
	}
	limit := arg(input.Limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT %s`,
		jobColumns, strings.Join(where, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.EmployerID, &j.Title, &j.Description, &j.Location, &j.Remote, &j.EmploymentType,
		&j.SalaryMin, &j.SalaryMax, &j.Status, &j.ClosesAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}

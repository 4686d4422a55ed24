package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
)

type ListJobsInput struct {
	Query          string // matched against title and description
	Location       string
	EmploymentType domain.EmploymentType // empty = any
	EmployerID     string                // empty = any employer, open postings only
	CursorTime     *time.Time            // nil = first page
	CursorID       string                // used only when CursorTime is non-nil
	Limit          int
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, input ListJobsInput) ([]*domain.Job, error)
	// Update and Close are scoped to the owning employer; a posting owned by
	// someone else is reported as domain.ErrJobNotFound.
	Update(ctx context.Context, job *domain.Job) (*domain.Job, error)
	Close(ctx context.Context, id, employerID string) error

	CloseExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

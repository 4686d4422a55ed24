package repository

import (
	"context"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
)

type ApplicationRepository interface {
	// Create fails with domain.ErrAlreadyApplied on a duplicate (job, candidate) pair.
	Create(ctx context.Context, app *domain.Application) (*domain.Application, error)
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]*domain.Application, error)
	ListByJob(ctx context.Context, jobID string) ([]*domain.Application, error)
	// UpdateStatus only changes applications whose current status is not final.
	UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error)
}

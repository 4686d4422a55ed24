package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
)

type ApplicationUsecase struct {
	apps repository.ApplicationRepository
	jobs repository.JobRepository
	now  func() time.Time
}

func NewApplicationUsecase(apps repository.ApplicationRepository, jobs repository.JobRepository) *ApplicationUsecase {
	return &ApplicationUsecase{apps: apps, jobs: jobs, now: time.Now}
}

func (u *ApplicationUsecase) Apply(ctx context.Context, jobID, candidateID, coverLetter string) (*domain.Application, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if !job.AcceptsApplications(u.now()) {
		return nil, domain.ErrJobClosed
	}

	app, err := u.apps.Create(ctx, &domain.Application{
		JobID:       jobID,
		CandidateID: candidateID,
		CoverLetter: strings.TrimSpace(coverLetter),
		Status:      domain.ApplicationSubmitted,
	})
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func (u *ApplicationUsecase) ListMine(ctx context.Context, candidateID string) ([]*domain.Application, error) {
	apps, err := u.apps.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (u *ApplicationUsecase) Withdraw(ctx context.Context, id, candidateID string) (*domain.Application, error) {
	app, err := u.apps.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	// Hide other candidates' applications behind not-found.
	if app.CandidateID != candidateID {
		return nil, domain.ErrApplicationNotFound
	}
	return u.transition(ctx, app, domain.ApplicationWithdrawn)
}

// ListForJob returns the applications of a posting the employer owns.
func (u *ApplicationUsecase) ListForJob(ctx context.Context, jobID, employerID string) ([]*domain.Application, error) {
	if _, err := u.ownedJob(ctx, jobID, employerID); err != nil {
		return nil, err
	}
	apps, err := u.apps.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (u *ApplicationUsecase) SetStatus(ctx context.Context, id, employerID string, status domain.ApplicationStatus) (*domain.Application, error) {
	if !status.EmployerSettable() {
		return nil, domain.ErrInvalidApplicationStatus
	}
	app, err := u.apps.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	if _, err = u.ownedJob(ctx, app.JobID, employerID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}
	return u.transition(ctx, app, status)
}

func (u *ApplicationUsecase) transition(ctx context.Context, app *domain.Application, status domain.ApplicationStatus) (*domain.Application, error) {
	if app.Status.Final() {
		return nil, domain.ErrInvalidStatusChange
	}
	updated, err := u.apps.UpdateStatus(ctx, app.ID, status)
	if err != nil {
		return nil, fmt.Errorf("update application status: %w", err)
	}
	return updated, nil
}

func (u *ApplicationUsecase) ownedJob(ctx context.Context, jobID, employerID string) (*domain.Job, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.EmployerID != employerID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

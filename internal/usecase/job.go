package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrInvalidSalaryRange = errors.New("salary_min exceeds salary_max")
)

type JobUsecase struct {
	repo repository.JobRepository
}

func NewJobUsecase(repo repository.JobRepository) *JobUsecase {
	return &JobUsecase{repo: repo}
}

type JobInput struct {
	Title          string
	Description    string
	Location       string
	Remote         bool
	EmploymentType domain.EmploymentType
	SalaryMin      *int
	SalaryMax      *int
	ClosesAt       *time.Time
}

func (in JobInput) validate() error {
	if !in.EmploymentType.Valid() {
		return domain.ErrInvalidEmploymentType
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		return ErrInvalidSalaryRange
	}
	return nil
}

func (u *JobUsecase) CreateJob(ctx context.Context, employerID string, input JobInput) (*domain.Job, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	job := &domain.Job{
		EmployerID:     employerID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Location:       strings.TrimSpace(input.Location),
		Remote:         input.Remote,
		EmploymentType: input.EmploymentType,
		SalaryMin:      input.SalaryMin,
		SalaryMax:      input.SalaryMax,
		Status:         domain.JobStatusOpen,
		ClosesAt:       input.ClosesAt,
	}

	created, err := u.repo.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return created, nil
}

func (u *JobUsecase) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	job, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (u *JobUsecase) UpdateJob(ctx context.Context, id, employerID string, input JobInput) (*domain.Job, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	updated, err := u.repo.Update(ctx, &domain.Job{
		ID:             id,
		EmployerID:     employerID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Location:       strings.TrimSpace(input.Location),
		Remote:         input.Remote,
		EmploymentType: input.EmploymentType,
		SalaryMin:      input.SalaryMin,
		SalaryMax:      input.SalaryMax,
		ClosesAt:       input.ClosesAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return updated, nil
}

func (u *JobUsecase) CloseJob(ctx context.Context, id, employerID string) error {
	if err := u.repo.Close(ctx, id, employerID); err != nil {
		return fmt.Errorf("close job: %w", err)
	}
	return nil
}

type ListJobsInput struct {
	Query          string
	Location       string
	EmploymentType string
	EmployerID     string
	Cursor         string
	Limit          int
}

type ListJobsResult struct {
	Jobs       []*domain.Job
	NextCursor *string
}

type jobCursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

func decodeJobCursor(s string) (*time.Time, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}
	var c jobCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, "", fmt.Errorf("unmarshal cursor: %w", err)
	}
	if err := uuid.Validate(c.ID); err != nil {
		return nil, "", fmt.Errorf("cursor id: %w", err)
	}
	return &c.CreatedAt, c.ID, nil
}

func encodeJobCursor(createdAt time.Time, id string) string {
	b, _ := json.Marshal(jobCursor{CreatedAt: createdAt, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// ListJobs pages newest-first. It fetches one extra row to know whether a
// next page exists.
func (u *JobUsecase) ListJobs(ctx context.Context, input ListJobsInput) (*ListJobsResult, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	employmentType := domain.EmploymentType(input.EmploymentType)
	if employmentType != "" && !employmentType.Valid() {
		return nil, domain.ErrInvalidEmploymentType
	}

	repoInput := repository.ListJobsInput{
		Query:          strings.TrimSpace(input.Query),
		Location:       strings.TrimSpace(input.Location),
		EmploymentType: employmentType,
		EmployerID:     input.EmployerID,
		Limit:          limit + 1,
	}
	if input.Cursor != "" {
		t, id, err := decodeJobCursor(input.Cursor)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		repoInput.CursorTime = t
		repoInput.CursorID = id
	}

	jobs, err := u.repo.List(ctx, repoInput)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	result := &ListJobsResult{Jobs: jobs}
	if len(jobs) > limit {
		result.Jobs = jobs[:limit]
		last := result.Jobs[limit-1]
		next := encodeJobCursor(last.CreatedAt, last.ID)
		result.NextCursor = &next
	}
	return result, nil
}

// CloseExpired is driven by the maintenance worker.
func (u *JobUsecase) CloseExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := u.repo.CloseExpired(ctx, now, 500)
	if err != nil {
		return 0, fmt.Errorf("close expired jobs: %w", err)
	}
	return n, nil
}

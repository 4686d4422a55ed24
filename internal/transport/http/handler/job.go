package handler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/gin-gonic/gin"
)

type jobUsecaser interface {
	CreateJob(ctx context.Context, employerID string, input usecase.JobInput) (*domain.Job, error)
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	UpdateJob(ctx context.Context, id, employerID string, input usecase.JobInput) (*domain.Job, error)
	CloseJob(ctx context.Context, id, employerID string) error
	ListJobs(ctx context.Context, input usecase.ListJobsInput) (*usecase.ListJobsResult, error)
}

type JobHandler struct {
	jobUsecase jobUsecaser
	logger     *slog.Logger
}

func NewJobHandler(jobUsecase jobUsecaser, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobUsecase: jobUsecase, logger: logger.With("component", "job_handler")}
}

type jobRequest struct {
	Title          string     `json:"title"           binding:"required,max=200"`
	Description    string     `json:"description"     binding:"required,max=20000"`
	Location       string     `json:"location"        binding:"max=200"`
	Remote         bool       `json:"remote"`
	EmploymentType string     `json:"employment_type" binding:"required,oneof=full_time part_time contract internship"`
	SalaryMin      *int       `json:"salary_min"      binding:"omitempty,min=0"`
	SalaryMax      *int       `json:"salary_max"      binding:"omitempty,min=0"`
	ClosesAt       *time.Time `json:"closes_at"`
}

func (r jobRequest) input() usecase.JobInput {
	return usecase.JobInput{
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		Remote:         r.Remote,
		EmploymentType: domain.EmploymentType(r.EmploymentType),
		SalaryMin:      r.SalaryMin,
		SalaryMax:      r.SalaryMax,
		ClosesAt:       r.ClosesAt,
	}
}

type jobResponse struct {
	ID             string                `json:"id"`
	EmployerID     string                `json:"employer_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Location       string                `json:"location"`
	Remote         bool                  `json:"remote"`
	EmploymentType domain.EmploymentType `json:"employment_type"`
	SalaryMin      *int                  `json:"salary_min,omitempty"`
	SalaryMax      *int                  `json:"salary_max,omitempty"`
	Status         domain.JobStatus      `json:"status"`
	ClosesAt       *time.Time            `json:"closes_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type pageMeta struct {
	NextCursor *string `json:"next_cursor"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:             j.ID,
		EmployerID:     j.EmployerID,
		Title:          j.Title,
		Description:    j.Description,
		Location:       j.Location,
		Remote:         j.Remote,
		EmploymentType: j.EmploymentType,
		SalaryMin:      j.SalaryMin,
		SalaryMax:      j.SalaryMax,
		Status:         j.Status,
		ClosesAt:       j.ClosesAt,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

// GET /jobs?q=&location=&type=&cursor=&limit=
func (h *JobHandler) List(c *gin.Context) {
	h.list(c, "")
}

// GET /jobs/mine
func (h *JobHandler) ListMine(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	h.list(c, id.UserID)
}

func (h *JobHandler) list(c *gin.Context, employerID string) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.jobUsecase.ListJobs(c.Request.Context(), usecase.ListJobsInput{
		Query:          c.Query("q"),
		Location:       c.Query("location"),
		EmploymentType: c.Query("type"),
		EmployerID:     employerID,
		Cursor:         c.Query("cursor"),
		Limit:          limit,
	})
	if err != nil {
		writeError(c, h.logger, "list jobs", err)
		return
	}

	items := make([]jobResponse, len(result.Jobs))
	for i, j := range result.Jobs {
		items[i] = toJobResponse(j)
	}
	response.Page(c, items, pageMeta{NextCursor: result.NextCursor})
}

// GET /jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	jobID, ok := pathID(c, domain.ErrJobNotFound)
	if !ok {
		return
	}

	job, err := h.jobUsecase.GetByID(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, h.logger, "get job", err)
		return
	}
	response.Success(c, toJobResponse(job))
}

// POST /jobs
func (h *JobHandler) Create(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	job, err := h.jobUsecase.CreateJob(c.Request.Context(), id.UserID, req.input())
	if err != nil {
		writeError(c, h.logger, "create job", err)
		return
	}
	response.Created(c, toJobResponse(job))
}

// PUT /jobs/:id
func (h *JobHandler) Update(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	jobID, ok := pathID(c, domain.ErrJobNotFound)
	if !ok {
		return
	}

	job, err := h.jobUsecase.UpdateJob(c.Request.Context(), jobID, id.UserID, req.input())
	if err != nil {
		writeError(c, h.logger, "update job", err)
		return
	}
	response.Success(c, toJobResponse(job))
}

// POST /jobs/:id/close
func (h *JobHandler) Close(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	jobID, ok := pathID(c, domain.ErrJobNotFound)
	if !ok {
		return
	}
	if err := h.jobUsecase.CloseJob(c.Request.Context(), jobID, id.UserID); err != nil {
		writeError(c, h.logger, "close job", err)
		return
	}
	response.Success(c, gin.H{"id": jobID, "status": domain.JobStatusClosed})
}

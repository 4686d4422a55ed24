package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

type applicationUsecaser interface {
	Apply(ctx context.Context, jobID, candidateID, coverLetter string) (*domain.Application, error)
	ListMine(ctx context.Context, candidateID string) ([]*domain.Application, error)
	Withdraw(ctx context.Context, id, candidateID string) (*domain.Application, error)
	ListForJob(ctx context.Context, jobID, employerID string) ([]*domain.Application, error)
	SetStatus(ctx context.Context, id, employerID string, status domain.ApplicationStatus) (*domain.Application, error)
}

type ApplicationHandler struct {
	appUsecase applicationUsecaser
	logger     *slog.Logger
}

func NewApplicationHandler(appUsecase applicationUsecaser, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{appUsecase: appUsecase, logger: logger.With("component", "application_handler")}
}

type applyRequest struct {
	CoverLetter string `json:"cover_letter" binding:"max=10000"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=reviewing accepted rejected"`
}

type applicationResponse struct {
	ID          string                   `json:"id"`
	JobID       string                   `json:"job_id"`
	CandidateID string                   `json:"candidate_id"`
	CoverLetter string                   `json:"cover_letter"`
	Status      domain.ApplicationStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func toApplicationResponse(a *domain.Application) applicationResponse {
	return applicationResponse{
		ID:          a.ID,
		JobID:       a.JobID,
		CandidateID: a.CandidateID,
		CoverLetter: a.CoverLetter,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toApplicationList(apps []*domain.Application) []applicationResponse {
	out := make([]applicationResponse, len(apps))
	for i, a := range apps {
		out[i] = toApplicationResponse(a)
	}
	return out
}

// POST /jobs/:id/applications
func (h *ApplicationHandler) Apply(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	// An empty body is a valid application without a cover letter.
	var req applyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	jobID, ok := pathID(c, domain.ErrJobNotFound)
	if !ok {
		return
	}

	app, err := h.appUsecase.Apply(c.Request.Context(), jobID, id.UserID, req.CoverLetter)
	if err != nil {
		writeError(c, h.logger, "apply", err)
		return
	}
	response.Created(c, toApplicationResponse(app))
}

// GET /applications/mine
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	apps, err := h.appUsecase.ListMine(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.logger, "list my applications", err)
		return
	}
	response.Success(c, toApplicationList(apps))
}

// POST /applications/:id/withdraw
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	appID, ok := pathID(c, domain.ErrApplicationNotFound)
	if !ok {
		return
	}

	app, err := h.appUsecase.Withdraw(c.Request.Context(), appID, id.UserID)
	if err != nil {
		writeError(c, h.logger, "withdraw application", err)
		return
	}
	response.Success(c, toApplicationResponse(app))
}

// GET /jobs/:id/applications
func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	jobID, ok := pathID(c, domain.ErrJobNotFound)
	if !ok {
		return
	}

	apps, err := h.appUsecase.ListForJob(c.Request.Context(), jobID, id.UserID)
	if err != nil {
		writeError(c, h.logger, "list job applications", err)
		return
	}
	response.Success(c, toApplicationList(apps))
}

// PUT /applications/:id/status
func (h *ApplicationHandler) SetStatus(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	appID, ok := pathID(c, domain.ErrApplicationNotFound)
	if !ok {
		return
	}

	app, err := h.appUsecase.SetStatus(c.Request.Context(), appID, id.UserID, domain.ApplicationStatus(req.Status))
	if err != nil {
		writeError(c, h.logger, "set application status", err)
		return
	}
	response.Success(c, toApplicationResponse(app))
}

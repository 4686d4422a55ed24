package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/gin-gonic/gin"
)

type profileUsecaser interface {
	Get(ctx context.Context, id domain.Identity) (*usecase.Profile, error)
	Update(ctx context.Context, id domain.Identity, input usecase.UpdateProfileInput) (*usecase.Profile, error)
}

type ProfileHandler struct {
	profileUsecase profileUsecaser
	logger         *slog.Logger
}

func NewProfileHandler(profileUsecase profileUsecaser, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profileUsecase: profileUsecase, logger: logger.With("component", "profile_handler")}
}

type candidateProfileBody struct {
	Headline  string   `json:"headline"   binding:"max=200"`
	Bio       string   `json:"bio"        binding:"max=5000"`
	Location  string   `json:"location"   binding:"max=200"`
	Skills    []string `json:"skills"     binding:"max=50,dive,max=60"`
	ResumeURL *string  `json:"resume_url" binding:"omitempty,url,max=2048"`
}

type companyProfileBody struct {
	CompanyName string  `json:"company_name" binding:"max=200"`
	Website     *string `json:"website"      binding:"omitempty,url,max=2048"`
	Industry    string  `json:"industry"     binding:"max=100"`
	Size        string  `json:"size"         binding:"max=50"`
	Description string  `json:"description"  binding:"max=5000"`
}

type updateProfileRequest struct {
	FirstName string                `json:"first_name" binding:"required,max=100"`
	LastName  string                `json:"last_name"  binding:"required,max=100"`
	Candidate *candidateProfileBody `json:"candidate"`
	Company   *companyProfileBody   `json:"company"`
}

type profileResponse struct {
	User      *userResponse         `json:"user"`
	Candidate *candidateProfileBody `json:"candidate,omitempty"`
	Company   *companyProfileBody   `json:"company,omitempty"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty"`
}

func toProfileResponse(p *usecase.Profile) profileResponse {
	resp := profileResponse{User: toUserResponse(p.User)}
	switch {
	case p.Candidate != nil:
		resp.Candidate = &candidateProfileBody{
			Headline:  p.Candidate.Headline,
			Bio:       p.Candidate.Bio,
			Location:  p.Candidate.Location,
			Skills:    p.Candidate.Skills,
			ResumeURL: p.Candidate.ResumeURL,
		}
		if !p.Candidate.UpdatedAt.IsZero() {
			resp.UpdatedAt = &p.Candidate.UpdatedAt
		}
	case p.Company != nil:
		resp.Company = &companyProfileBody{
			CompanyName: p.Company.CompanyName,
			Website:     p.Company.Website,
			Industry:    p.Company.Industry,
			Size:        p.Company.Size,
			Description: p.Company.Description,
		}
		if !p.Company.UpdatedAt.IsZero() {
			resp.UpdatedAt = &p.Company.UpdatedAt
		}
	}
	return resp
}

// GET /profile
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	p, err := h.profileUsecase.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "get profile", err)
		return
	}
	response.Success(c, toProfileResponse(p))
}

// PUT /profile
func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	input := usecase.UpdateProfileInput{FirstName: req.FirstName, LastName: req.LastName}
	if b := req.Candidate; b != nil {
		input.Candidate = &domain.CandidateProfile{
			Headline:  b.Headline,
			Bio:       b.Bio,
			Location:  b.Location,
			Skills:    b.Skills,
			ResumeURL: b.ResumeURL,
		}
	}
	if b := req.Company; b != nil {
		input.Company = &domain.CompanyProfile{
			CompanyName: b.CompanyName,
			Website:     b.Website,
			Industry:    b.Industry,
			Size:        b.Size,
			Description: b.Description,
		}
	}

	p, err := h.profileUsecase.Update(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, h.logger, "update profile", err)
		return
	}
	response.Success(c, toProfileResponse(p))
}

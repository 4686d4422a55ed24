package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string, client domain.ClientInfo) (*domain.TokenPair, *domain.User, error)
	Refresh(ctx context.Context, rawToken string, client domain.ClientInfo) (*domain.TokenPair, error)
	Logout(ctx context.Context, rawToken string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Email     string `json:"email"      binding:"required,email,max=254"`
	Password  string `json:"password"   binding:"required,min=8,max=72"`
	Role      string `json:"role"       binding:"required,oneof=candidate employer"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name"  binding:"required,max=100"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required,min=8,max=72"`
}

type userResponse struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Role          domain.Role `json:"role"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	EmailVerified bool        `json:"email_verified"`
	CreatedAt     time.Time   `json:"created_at"`
}

type tokenPairResponse struct {
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	TokenType        string        `json:"token_type"`
	ExpiresIn        int           `json:"expires_in"`
	AccessExpiresAt  time.Time     `json:"access_expires_at"`
	RefreshExpiresAt time.Time     `json:"refresh_expires_at"`
	User             *userResponse `json:"user,omitempty"`
}

func toUserResponse(u *domain.User) *userResponse {
	return &userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

func toTokenPairResponse(p *domain.TokenPair, u *domain.User) tokenPairResponse {
	resp := tokenPairResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int(p.AccessTTL / time.Second),
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
	if u != nil {
		resp.User = toUserResponse(u)
	}
	return resp
}

func clientInfo(c *gin.Context) domain.ClientInfo {
	return domain.ClientInfo{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(c, h.logger, "register", err)
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if user == nil {
			writeError(c, h.logger, "register", err)
			return
		}
		// The account exists; only the mail failed.
		h.logger.WarnContext(c.Request.Context(), "verification email not sent", "user_id", user.ID, "error", err)
	}

	response.Created(c, gin.H{"user": toUserResponse(user)})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, user, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}
	response.Success(c, toTokenPairResponse(pair, user))
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.authUsecase.Refresh(c.Request.Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		writeError(c, h.logger, "refresh", err)
		return
	}
	response.Success(c, toTokenPairResponse(pair, nil))
}

// POST /auth/logout
// Succeeds for unknown and already-revoked tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authUsecase.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.logger, "logout", err)
		return
	}
	response.Success(c, gin.H{"logged_out": true})
}

// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	n, err := h.authUsecase.LogoutAll(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.logger, "logout all", err)
		return
	}
	response.Success(c, gin.H{"revoked": n})
}

// GET /auth/verify-email?token=<raw>
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := h.authUsecase.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		writeError(c, h.logger, "verify email", err)
		return
	}
	response.Success(c, gin.H{"user": toUserResponse(user)})
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	user, err := h.authUsecase.Me(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.logger, "me", err)
		return
	}
	response.Success(c, gin.H{"user": toUserResponse(user)})
}

// POST /auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err := h.authUsecase.ChangePassword(c.Request.Context(), id.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
			return
		}
		writeError(c, h.logger, "change password", err)
		return
	}
	response.Success(c, gin.H{"password_changed": true})
}

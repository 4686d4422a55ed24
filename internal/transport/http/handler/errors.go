package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/middleware"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type apiError struct {
	status  int
	code    string
	message string
}

// knownErrors maps domain sentinels to their external form. Order matters
// only where one sentinel could wrap another, which none currently do.
var knownErrors = []struct {
	err error
	api apiError
}{
	{domain.ErrUnknownToken, apiError{http.StatusUnauthorized, response.CodeUnknownToken, "Refresh token not recognised"}},
	{domain.ErrRevokedToken, apiError{http.StatusUnauthorized, response.CodeRevokedToken, "Refresh token has been revoked"}},
	{domain.ErrExpiredToken, apiError{http.StatusUnauthorized, response.CodeExpiredToken, "Refresh token has expired"}},
	{domain.ErrInvalidCredentials, apiError{http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid email or password"}},
	{domain.ErrEmailTaken, apiError{http.StatusConflict, response.CodeEmailTaken, "Email is already registered"}},
	{domain.ErrInvalidVerificationToken, apiError{http.StatusBadRequest, response.CodeInvalidVerificationToken, "Verification link is invalid or expired"}},
	{domain.ErrInvalidRole, apiError{http.StatusBadRequest, response.CodeValidation, "Role must be candidate or employer"}},
	{domain.ErrUserNotFound, apiError{http.StatusNotFound, response.CodeNotFound, "User not found"}},

	{domain.ErrJobNotFound, apiError{http.StatusNotFound, response.CodeNotFound, "Job not found"}},
	{domain.ErrJobClosed, apiError{http.StatusConflict, response.CodeJobClosed, "Job is no longer accepting applications"}},
	{domain.ErrInvalidEmploymentType, apiError{http.StatusBadRequest, response.CodeValidation, "Invalid employment type"}},
	{usecase.ErrInvalidCursor, apiError{http.StatusBadRequest, response.CodeValidation, "Invalid cursor"}},
	{usecase.ErrInvalidSalaryRange, apiError{http.StatusBadRequest, response.CodeValidation, "salary_min must not exceed salary_max"}},

	{domain.ErrApplicationNotFound, apiError{http.StatusNotFound, response.CodeNotFound, "Application not found"}},
	{domain.ErrAlreadyApplied, apiError{http.StatusConflict, response.CodeAlreadyApplied, "You have already applied to this job"}},
	{domain.ErrInvalidStatusChange, apiError{http.StatusConflict, response.CodeInvalidStatusChange, "Application status can no longer change"}},
	{domain.ErrInvalidApplicationStatus, apiError{http.StatusBadRequest, response.CodeValidation, "Invalid application status"}},
}

// writeError maps err to the envelope. Unmapped errors are logged and sent
// as INTERNAL_ERROR without detail.
func writeError(c *gin.Context, logger *slog.Logger, op string, err error) {
	if api, ok := lookupError(err); ok {
		response.Error(c, api.status, api.code, api.message)
		return
	}
	logger.ErrorContext(c.Request.Context(), op, "error", err)
	response.InternalError(c)
}

func lookupError(err error) (apiError, bool) {
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			return k.api, true
		}
	}
	return apiError{}, false
}

// pathID returns the :id parameter in canonical UUID form. Ids are UUID
// columns, so anything that does not parse cannot exist and is answered with
// notFound's mapping.
func pathID(c *gin.Context, notFound error) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api, _ := lookupError(notFound)
		response.Error(c, api.status, api.code, api.message)
		return "", false
	}
	return id.String(), true
}

// requireIdentity writes UNAUTHORIZED when the route was mounted without
// Authenticate.
func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
	}
	return id, ok
}

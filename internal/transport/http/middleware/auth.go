package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/ErlanBelekov/jobgraph/internal/reqctx"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

const (
	bearerPrefix = "Bearer "
	identityKey  = "identity"
)

// TokenVerifier is the subset of usecase.TokenService the middleware needs.
type TokenVerifier interface {
	VerifyAccessToken(raw string) (domain.Identity, error)
}

// Authenticate requires "Authorization: Bearer <access token>". A missing or
// differently-schemed header is NO_TOKEN. A bad signature and an expired
// token are both reported as INVALID_TOKEN. Anything else fails closed with
// INTERNAL_ERROR.
//
// On success the identity is stored on the gin context and on the request
// context, where handlers and the log handler read it.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "auth_middleware")

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			reject(c, http.StatusUnauthorized, response.CodeNoToken, "Missing bearer token")
			return
		}

		rawToken := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if rawToken == "" {
			reject(c, http.StatusUnauthorized, response.CodeNoToken, "Missing bearer token")
			return
		}

		id, err := verifier.VerifyAccessToken(rawToken)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
				reject(c, http.StatusUnauthorized, response.CodeInvalidToken, "Token is invalid or expired")
			default:
				logger.ErrorContext(c.Request.Context(), "verify access token", "error", err)
				reject(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
			}
			return
		}
		if !id.Role.Valid() || id.UserID == "" {
			logger.ErrorContext(c.Request.Context(), "verifier returned incomplete identity")
			reject(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(reqctx.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// IdentityFrom returns the identity Authenticate attached.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok && id.UserID != ""
}

func reject(c *gin.Context, status int, code, message string) {
	metrics.AuthFailuresTotal.WithLabelValues(code).Inc()
	response.Abort(c, status, code, message)
}

package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/handler"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/middleware"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterOptions struct {
	Logger       *slog.Logger
	Tokens       middleware.TokenVerifier
	Auth         *handler.AuthHandler
	Jobs         *handler.JobHandler
	Applications *handler.ApplicationHandler
	Profiles     *handler.ProfileHandler

	AllowedOrigins []string
	// AuthRateLimit is requests per minute per IP on the credential
	// endpoints; 0 disables the limit.
	AuthRateLimit int
	// HSTS adds Strict-Transport-Security; set when served over TLS.
	HSTS bool
}

func NewRouter(opts RouterOptions) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(opts.HSTS))
	r.Use(sloggin.New(opts.Logger))
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	// Stage lists run in order; each later stage reads the identity the
	// first one attached.
	authMW := middleware.Authenticate(opts.Tokens, opts.Logger)
	authenticated := []gin.HandlerFunc{authMW}
	employerOnly := []gin.HandlerFunc{authMW, middleware.RequireRole(domain.RoleEmployer)}
	candidateOnly := []gin.HandlerFunc{authMW, middleware.RequireRole(domain.RoleCandidate)}

	credentials := r.Group("/auth")
	if opts.AuthRateLimit > 0 {
		credentials.Use(middleware.RateLimit(opts.AuthRateLimit, time.Minute))
	}
	credentials.POST("/register", opts.Auth.Register)
	credentials.POST("/login", opts.Auth.Login)
	credentials.POST("/refresh", opts.Auth.Refresh)

	r.POST("/auth/logout", opts.Auth.Logout)
	r.GET("/auth/verify-email", opts.Auth.VerifyEmail)

	// Public job board
	r.GET("/jobs", opts.Jobs.List)
	r.GET("/jobs/:id", opts.Jobs.GetByID)

	// Any signed-in user
	user := r.Group("/", authenticated...)
	user.GET("/auth/me", opts.Auth.Me)
	user.POST("/auth/logout-all", opts.Auth.LogoutAll)
	user.POST("/auth/change-password", opts.Auth.ChangePassword)
	user.GET("/profile", opts.Profiles.Get)
	user.PUT("/profile", opts.Profiles.Update)

	// Employers
	employer := r.Group("/", employerOnly...)
	employer.GET("/jobs/mine", opts.Jobs.ListMine)
	employer.POST("/jobs", opts.Jobs.Create)
	employer.PUT("/jobs/:id", opts.Jobs.Update)
	employer.POST("/jobs/:id/close", opts.Jobs.Close)
	employer.GET("/jobs/:id/applications", opts.Applications.ListForJob)
	employer.PUT("/applications/:id/status", opts.Applications.SetStatus)

	// Candidates
	candidate := r.Group("/", candidateOnly...)
	candidate.POST("/jobs/:id/applications", opts.Applications.Apply)
	candidate.GET("/applications/mine", opts.Applications.ListMine)
	candidate.POST("/applications/:id/withdraw", opts.Applications.Withdraw)

	if len(opts.AllowedOrigins) == 0 {
		return r
	}
	return middleware.CORS(opts.AllowedOrigins)(r)
}

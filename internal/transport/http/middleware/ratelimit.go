package middleware

import (
	"net/http"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
)

// RateLimit limits requests per client IP for the routes it guards. Each
// call creates its own counter, so limits are not shared between groups.
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"` + response.CodeRateLimited + `","message":"Too many requests"}}`))
		}),
	)

	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/gin-gonic/gin"
)

const anonymous = "anonymous"

// Metrics records latency and counts per route template, status and caller
// role. It must run before the route's stages so the identity they attach is
// visible once c.Next returns.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		role := anonymous
		if id, ok := IdentityFrom(c); ok {
			role = string(id.Role)
		}
		labels := []string{c.Request.Method, route, strconv.Itoa(c.Writer.Status()), role}

		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
	}
}

package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after Authenticate. The allow-list is fixed when the
// route is registered; membership is a flat check with no role hierarchy.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	for _, r := range roles {
		if !r.Valid() {
			panic("middleware: RequireRole with unknown role " + string(r))
		}
	}
	allowed := slices.Clone(roles)

	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	forbidden := "Requires role: " + strings.Join(names, " or ")

	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			reject(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
			return
		}
		if !slices.Contains(allowed, id.Role) {
			reject(c, http.StatusForbidden, response.CodeForbidden, forbidden)
			return
		}
		c.Next()
	}
}

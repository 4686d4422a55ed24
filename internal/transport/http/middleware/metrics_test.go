package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_LabelsRouteAndCallerRole(t *testing.T) {
	employer := domain.Identity{UserID: "emp-1", Role: domain.RoleEmployer}

	r := gin.New()
	r.Use(middleware.Metrics())
	r.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/jobs/mine",
		middleware.Authenticate(verifierReturning(employer, nil), discardLogger),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	count := func(route, status, role string) float64 {
		return testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, route, status, role))
	}
	publicBefore := count("/jobs/:id", "200", "anonymous")
	mineBefore := count("/jobs/mine", "200", "employer")
	unmatchedBefore := count("unmatched", "404", "anonymous")

	for _, path := range []string{"/jobs/a", "/jobs/b", "/jobs/mine", "/nowhere"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer t")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := count("/jobs/:id", "200", "anonymous") - publicBefore; got != 2 {
		t.Errorf("public route delta = %v, want 2 (one series per template)", got)
	}
	if got := count("/jobs/mine", "200", "employer") - mineBefore; got != 1 {
		t.Errorf("employer route delta = %v, want 1", got)
	}
	if got := count("unmatched", "404", "anonymous") - unmatchedBefore; got != 1 {
		t.Errorf("unmatched delta = %v, want 1", got)
	}
}

func TestSecurity_Headers(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		r := gin.New()
		r.Use(middleware.Security(hsts))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		for header, want := range map[string]string{
			"X-Content-Type-Options":  "nosniff",
			"X-Frame-Options":         "DENY",
			"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
			"Cache-Control":           "no-store",
		} {
			if got := w.Header().Get(header); got != want {
				t.Errorf("hsts=%v: %s = %q, want %q", hsts, header, got, want)
			}
		}
		if got := w.Header().Get("Strict-Transport-Security") != ""; got != hsts {
			t.Errorf("hsts=%v: Strict-Transport-Security present = %v", hsts, got)
		}
	}
}

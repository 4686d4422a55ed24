package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/jobgraph/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobgraph",
		Name:      "auth_failures_total",
		Help:      "Requests rejected by the auth middleware or role guard, by error code.",
	}, []string{"code"})

	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobgraph",
		Name:      "tokens_issued_total",
		Help:      "Tokens minted, by kind (access, refresh).",
	}, []string{"kind"})

	RefreshRotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobgraph",
		Name:      "refresh_rotations_total",
		Help:      "Refresh token exchanges, by outcome.",
	}, []string{"outcome"})

	// Maintenance metrics

	MaintenanceRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobgraph",
		Name:      "maintenance_runs_total",
		Help:      "Maintenance task runs, by task and result.",
	}, []string{"task", "result"})

	MaintenanceAffectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobgraph",
		Name:      "maintenance_affected_rows_total",
		Help:      "Rows changed by maintenance tasks.",
	}, []string{"task"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jobgraph",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route", "status", "role"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobgraph",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "route", "status", "role"})
)

func Register() {
	prometheus.MustRegister(
		AuthFailuresTotal,
		TokensIssuedTotal,
		RefreshRotationsTotal,
		MaintenanceRunsTotal,
		MaintenanceAffectedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus liveness and readiness checks.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}

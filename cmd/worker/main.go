// worker runs periodic maintenance: closing job postings past their deadline
// and clearing expired email-verification tokens.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/jobgraph/config"
	"github.com/ErlanBelekov/jobgraph/internal/health"
	"github.com/ErlanBelekov/jobgraph/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/jobgraph/internal/log"
	"github.com/ErlanBelekov/jobgraph/internal/maintenance"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool},
	)

	jobUsecase := usecase.NewJobUsecase(postgres.NewJobRepository(pool, cfg.DBQueryTimeout))
	userRepo := postgres.NewUserRepository(pool, cfg.DBQueryTimeout)

	runner, err := maintenance.NewRunner(cfg.MaintenanceSchedule, logger,
		maintenance.CloseExpiredJobs(jobUsecase),
		maintenance.ClearVerificationTokens(userRepo),
	)
	if err != nil {
		stop()
		log.Fatalf("maintenance: %v", err)
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	logger.Info("maintenance worker started", "schedule", cfg.MaintenanceSchedule)
	if err := runner.Start(ctx); err != nil {
		logger.Error("maintenance runner", "error", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	logger.Info("worker stopped")
}

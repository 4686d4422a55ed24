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
	"github.com/ErlanBelekov/jobgraph/internal/email"
	"github.com/ErlanBelekov/jobgraph/internal/health"
	"github.com/ErlanBelekov/jobgraph/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/jobgraph/internal/log"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	httptransport "github.com/ErlanBelekov/jobgraph/internal/transport/http"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/handler"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool, cfg.DBQueryTimeout)
	refreshRepo := postgres.NewRefreshTokenRepository(pool, cfg.DBQueryTimeout)
	jobRepo := postgres.NewJobRepository(pool, cfg.DBQueryTimeout)
	applicationRepo := postgres.NewApplicationRepository(pool, cfg.DBQueryTimeout)
	profileRepo := postgres.NewProfileRepository(pool, cfg.DBQueryTimeout)

	// Auth
	tokens := usecase.NewTokenService(userRepo, refreshRepo, []byte(cfg.JWTSecret),
		usecase.WithAccessTTL(cfg.AccessTokenTTL),
		usecase.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(userRepo, tokens, sender, cfg.BcryptCost, cfg.VerificationTokenTTL, cfg.AppBaseURL)

	// Job board
	jobUsecase := usecase.NewJobUsecase(jobRepo)
	applicationUsecase := usecase.NewApplicationUsecase(applicationRepo, jobRepo)
	profileUsecase := usecase.NewProfileUsecase(profileRepo, userRepo)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool},
	)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(httptransport.RouterOptions{
			Logger:         logger,
			Tokens:         tokens,
			Auth:           handler.NewAuthHandler(authUsecase, logger),
			Jobs:           handler.NewJobHandler(jobUsecase, logger),
			Applications:   handler.NewApplicationHandler(applicationUsecase, logger),
			Profiles:       handler.NewProfileHandler(profileUsecase, logger),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AuthRateLimit:  cfg.AuthRateLimit,
			HSTS:           cfg.Env != "local",
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

// migrate applies the embedded SQL migrations.
// Run: go run ./cmd/migrate [up|down|status]
package main

import (
	"context"
	"log"
	"os"

	"github.com/ErlanBelekov/jobgraph/config"
	"github.com/ErlanBelekov/jobgraph/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/jobgraph/internal/log"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, command); err != nil {
		logger.Error("migrate failed", "command", command, "error", err)
		pool.Close()
		os.Exit(1)
	}
	logger.Info("migrate finished", "command", command)
}

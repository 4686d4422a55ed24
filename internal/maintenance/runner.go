// Package maintenance runs periodic housekeeping against the database on a
// cron schedule: closing postings past their closing date and clearing
// verification tokens nobody used.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/robfig/cron/v3"
)

const defaultTaskTimeout = 30 * time.Second

// Task is one unit of housekeeping. Run reports how many rows it changed.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int, error)
}

type Result struct {
	Task     string
	Affected int
	Err      error
}

type Runner struct {
	schedule    string
	tasks       []Task
	logger      *slog.Logger
	taskTimeout time.Duration
	now         func() time.Time
}

// NewRunner validates schedule (standard 5-field cron syntax) up front so a
// typo fails at startup rather than silently never firing.
func NewRunner(schedule string, logger *slog.Logger, tasks ...Task) (*Runner, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse maintenance schedule %q: %w", schedule, err)
	}
	return &Runner{
		schedule:    schedule,
		tasks:       tasks,
		logger:      logger.With("component", "maintenance"),
		taskTimeout: defaultTaskTimeout,
		now:         time.Now,
	}, nil
}

// Start blocks until ctx is cancelled. A run that is still going when the
// next tick fires is not overlapped.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register maintenance job: %w", err)
	}

	c.Start()
	r.logger.Info("maintenance started", "schedule", r.schedule, "tasks", len(r.tasks))

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("maintenance shut down")
	return nil
}

// RunOnce runs every task in order. A failing task does not stop the rest.
func (r *Runner) RunOnce(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.tasks))
	for _, t := range r.tasks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, r.run(ctx, t))
	}
	return results
}

func (r *Runner) run(ctx context.Context, t Task) Result {
	ctx, cancel := context.WithTimeout(ctx, r.taskTimeout)
	defer cancel()

	start := time.Now()
	n, err := t.Run(ctx, r.now())
	if err != nil {
		metrics.MaintenanceRunsTotal.WithLabelValues(t.Name, "error").Inc()
		r.logger.ErrorContext(ctx, "maintenance task failed", "task", t.Name, "error", err)
		return Result{Task: t.Name, Err: err}
	}

	metrics.MaintenanceRunsTotal.WithLabelValues(t.Name, "ok").Inc()
	metrics.MaintenanceAffectedTotal.WithLabelValues(t.Name).Add(float64(n))
	if n > 0 {
		r.logger.InfoContext(ctx, "maintenance task done", "task", t.Name, "affected", n, "took", time.Since(start))
	}
	return Result{Task: t.Name, Affected: n}
}

package maintenance_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/infrastructure/memory"
	"github.com/ErlanBelekov/jobgraph/internal/maintenance"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRunner_InvalidSchedule(t *testing.T) {
	if _, err := maintenance.NewRunner("every five minutes", discardLogger()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRunOnce_FailingTaskDoesNotStopOthers(t *testing.T) {
	var ran []string
	failing := maintenance.Task{Name: "test_failing", Run: func(context.Context, time.Time) (int, error) {
		ran = append(ran, "failing")
		return 0, errors.New("db down")
	}}
	ok := maintenance.Task{Name: "test_ok", Run: func(context.Context, time.Time) (int, error) {
		ran = append(ran, "ok")
		return 3, nil
	}}

	r, err := maintenance.NewRunner("*/5 * * * *", discardLogger(), failing, ok)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	errorsBefore := testutil.ToFloat64(metrics.MaintenanceRunsTotal.WithLabelValues("test_failing", "error"))
	affectedBefore := testutil.ToFloat64(metrics.MaintenanceAffectedTotal.WithLabelValues("test_ok"))

	results := r.RunOnce(context.Background())

	if len(ran) != 2 || ran[0] != "failing" || ran[1] != "ok" {
		t.Fatalf("ran = %v, want [failing ok]", ran)
	}
	if results[0].Err == nil {
		t.Error("expected first result to carry the error")
	}
	if results[1].Affected != 3 {
		t.Errorf("affected = %d, want 3", results[1].Affected)
	}
	if got := testutil.ToFloat64(metrics.MaintenanceRunsTotal.WithLabelValues("test_failing", "error")) - errorsBefore; got != 1 {
		t.Errorf("error runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.MaintenanceAffectedTotal.WithLabelValues("test_ok")) - affectedBefore; got != 3 {
		t.Errorf("affected delta = %v, want 3", got)
	}
}

func TestRunOnce_CancelledContextRunsNothing(t *testing.T) {
	called := false
	task := maintenance.Task{Name: "test_cancelled", Run: func(context.Context, time.Time) (int, error) {
		called = true
		return 0, nil
	}}
	r, _ := maintenance.NewRunner("@hourly", discardLogger(), task)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := r.RunOnce(ctx); len(res) != 0 || called {
		t.Errorf("expected no task to run, got %v", res)
	}
}

func TestStart_ReturnsOnCancel(t *testing.T) {
	r, err := maintenance.NewRunner("* * * * *", discardLogger())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestCloseExpiredJobs_ClosesOnlyPastDeadline(t *testing.T) {
	store := memory.NewStore()
	jobs := store.Jobs()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired, _ := jobs.Create(ctx, &domain.Job{EmployerID: "e1", Title: "old", EmploymentType: domain.EmploymentFullTime, Status: domain.JobStatusOpen, ClosesAt: &past})
	live, _ := jobs.Create(ctx, &domain.Job{EmployerID: "e1", Title: "new", EmploymentType: domain.EmploymentFullTime, Status: domain.JobStatusOpen, ClosesAt: &future})

	r, _ := maintenance.NewRunner("*/5 * * * *", discardLogger(),
		maintenance.CloseExpiredJobs(usecase.NewJobUsecase(jobs)))

	results := r.RunOnce(ctx)
	if results[0].Err != nil || results[0].Affected != 1 {
		t.Fatalf("result = %+v, want 1 affected", results[0])
	}

	got, _ := jobs.GetByID(ctx, expired.ID)
	if got.Status != domain.JobStatusClosed {
		t.Errorf("expired job status = %s, want closed", got.Status)
	}
	got, _ = jobs.GetByID(ctx, live.ID)
	if got.Status != domain.JobStatusOpen {
		t.Errorf("live job status = %s, want open", got.Status)
	}
}

func TestClearVerificationTokens(t *testing.T) {
	store := memory.NewStore()
	users := store.Users()
	ctx := context.Background()

	hash := "abc"
	past := time.Now().Add(-time.Minute)
	u, _ := users.Create(ctx, &domain.User{Email: "x@example.com", Role: domain.RoleCandidate, VerificationTokenHash: &hash, VerificationExpiresAt: &past})

	r, _ := maintenance.NewRunner("*/5 * * * *", discardLogger(), maintenance.ClearVerificationTokens(users))
	if res := r.RunOnce(ctx); res[0].Affected != 1 {
		t.Fatalf("affected = %d, want 1", res[0].Affected)
	}

	got, _ := users.FindByID(ctx, u.ID)
	if got.VerificationTokenHash != nil {
		t.Error("verification token should be cleared")
	}
}

package maintenance

import (
	"context"
	"time"
)

type expiredJobCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int, error)
}

type verificationTokenCleaner interface {
	ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int, error)
}

func CloseExpiredJobs(jobs expiredJobCloser) Task {
	return Task{Name: "close_expired_jobs", Run: jobs.CloseExpired}
}

// ClearVerificationTokens drops unused, expired email-verification tokens.
// The accounts stay; they simply remain unverified.
func ClearVerificationTokens(users verificationTokenCleaner) Task {
	return Task{Name: "clear_verification_tokens", Run: users.ClearExpiredVerificationTokens}
}

package repository

import (
	"context"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
)

// ProfileRepository returns zero-value profiles (not an error) for users who
// never saved one.
type ProfileRepository interface {
	GetCandidate(ctx context.Context, userID string) (*domain.CandidateProfile, error)
	UpsertCandidate(ctx context.Context, p *domain.CandidateProfile) (*domain.CandidateProfile, error)
	GetCompany(ctx context.Context, userID string) (*domain.CompanyProfile, error)
	UpsertCompany(ctx context.Context, p *domain.CompanyProfile) (*domain.CompanyProfile, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewProfileRepository(pool *pgxpool.Pool, timeout time.Duration) *ProfileRepository {
	return &ProfileRepository{pool: pool, timeout: timeout}
}

func (r *ProfileRepository) GetCandidate(ctx context.Context, userID string) (*domain.CandidateProfile, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	p := domain.CandidateProfile{UserID: userID, Skills: []string{}}
	err := r.pool.QueryRow(ctx, `
		SELECT headline, bio, location, skills, resume_url, updated_at
		FROM candidate_profiles WHERE user_id = $1`, userID,
	).Scan(&p.Headline, &p.Bio, &p.Location, &p.Skills, &p.ResumeURL, &p.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get candidate profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepository) UpsertCandidate(ctx context.Context, p *domain.CandidateProfile) (*domain.CandidateProfile, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	out := domain.CandidateProfile{UserID: p.UserID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO candidate_profiles (user_id, headline, bio, location, skills, resume_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET headline   = EXCLUDED.headline,
		    bio        = EXCLUDED.bio,
		    location   = EXCLUDED.location,
		    skills     = EXCLUDED.skills,
		    resume_url = EXCLUDED.resume_url,
		    updated_at = NOW()
		RETURNING headline, bio, location, skills, resume_url, updated_at`,
		p.UserID, p.Headline, p.Bio, p.Location, p.Skills, p.ResumeURL,
	).Scan(&out.Headline, &out.Bio, &out.Location, &out.Skills, &out.ResumeURL, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert candidate profile: %w", err)
	}
	return &out, nil
}

func (r *ProfileRepository) GetCompany(ctx context.Context, userID string) (*domain.CompanyProfile, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	p := domain.CompanyProfile{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT company_name, website, industry, size, description, updated_at
		FROM company_profiles WHERE user_id = $1`, userID,
	).Scan(&p.CompanyName, &p.Website, &p.Industry, &p.Size, &p.Description, &p.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get company profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepository) UpsertCompany(ctx context.Context, p *domain.CompanyProfile) (*domain.CompanyProfile, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	out := domain.CompanyProfile{UserID: p.UserID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO company_profiles (user_id, company_name, website, industry, size, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET company_name = EXCLUDED.company_name,
		    website      = EXCLUDED.website,
		    industry     = EXCLUDED.industry,
		    size         = EXCLUDED.size,
		    description  = EXCLUDED.description,
		    updated_at   = NOW()
		RETURNING company_name, website, industry, size, description, updated_at`,
		p.UserID, p.CompanyName, p.Website, p.Industry, p.Size, p.Description,
	).Scan(&out.CompanyName, &out.Website, &out.Industry, &out.Size, &out.Description, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert company profile: %w", err)
	}
	return &out, nil
}

package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
)

type ProfileUsecase struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
}

func NewProfileUsecase(profiles repository.ProfileRepository, users repository.UserRepository) *ProfileUsecase {
	return &ProfileUsecase{profiles: profiles, users: users}
}

// Profile holds exactly one of Candidate or Company, matching User.Role.
type Profile struct {
	User      *domain.User
	Candidate *domain.CandidateProfile
	Company   *domain.CompanyProfile
}

func (u *ProfileUsecase) Get(ctx context.Context, id domain.Identity) (*Profile, error) {
	user, err := u.users.FindByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	p := &Profile{User: user}
	switch id.Role {
	case domain.RoleCandidate:
		p.Candidate, err = u.profiles.GetCandidate(ctx, id.UserID)
	case domain.RoleEmployer:
		p.Company, err = u.profiles.GetCompany(ctx, id.UserID)
	default:
		return nil, domain.ErrInvalidRole
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

type UpdateProfileInput struct {
	FirstName string
	LastName  string
	Candidate *domain.CandidateProfile
	Company   *domain.CompanyProfile
}

// Update saves display names and the role-specific part. A payload for the
// other role is ignored.
func (u *ProfileUsecase) Update(ctx context.Context, id domain.Identity, input UpdateProfileInput) (*Profile, error) {
	if err := u.users.UpdateNames(ctx, id.UserID, strings.TrimSpace(input.FirstName), strings.TrimSpace(input.LastName)); err != nil {
		return nil, fmt.Errorf("update names: %w", err)
	}

	var err error
	switch id.Role {
	case domain.RoleCandidate:
		c := input.Candidate
		if c == nil {
			c = &domain.CandidateProfile{}
		}
		c.UserID = id.UserID
		c.Skills = normalizeSkills(c.Skills)
		_, err = u.profiles.UpsertCandidate(ctx, c)
	case domain.RoleEmployer:
		c := input.Company
		if c == nil {
			c = &domain.CompanyProfile{}
		}
		c.UserID = id.UserID
		_, err = u.profiles.UpsertCompany(ctx, c)
	default:
		return nil, domain.ErrInvalidRole
	}
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return u.Get(ctx, id)
}

func normalizeSkills(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

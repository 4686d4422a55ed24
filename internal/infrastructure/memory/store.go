// Package memory is a mutex-guarded implementation of the repository
// interfaces. It backs the end-to-end and concurrency tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	users        map[string]*domain.User // key: id
	refresh      map[string]*domain.RefreshToken
	jobs         map[string]*domain.Job
	applications map[string]*domain.Application
	candidates   map[string]*domain.CandidateProfile
	companies    map[string]*domain.CompanyProfile

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]*domain.User),
		refresh:      make(map[string]*domain.RefreshToken), // key: token hash
		jobs:         make(map[string]*domain.Job),
		applications: make(map[string]*domain.Application),
		candidates:   make(map[string]*domain.CandidateProfile),
		companies:    make(map[string]*domain.CompanyProfile),
		now:          time.Now,
	}
}

func (s *Store) Users() *UserRepository                 { return &UserRepository{s} }
func (s *Store) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{s} }
func (s *Store) Jobs() *JobRepository                   { return &JobRepository{s} }
func (s *Store) Applications() *ApplicationRepository   { return &ApplicationRepository{s} }
func (s *Store) Profiles() *ProfileRepository           { return &ProfileRepository{s} }

var (
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
	_ repository.JobRepository          = (*JobRepository)(nil)
	_ repository.ApplicationRepository  = (*ApplicationRepository)(nil)
	_ repository.ProfileRepository      = (*ProfileRepository)(nil)
)

// ---------- Users ----------

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == email {
			return nil, domain.ErrEmailTaken
		}
	}

	now := r.s.now()
	cp := *u
	cp.ID = uuid.NewString()
	cp.Email = email
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.s.users[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) UpdateNames(_ context.Context, id, firstName, lastName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FirstName = firstName
	u.LastName = lastName
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *UserRepository) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *UserRepository) VerifyEmail(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.VerificationTokenHash == nil || *u.VerificationTokenHash != tokenHash {
			continue
		}
		if u.VerificationExpiresAt == nil || !u.VerificationExpiresAt.After(now) {
			return nil, domain.ErrInvalidVerificationToken
		}
		u.EmailVerified = true
		u.VerificationTokenHash = nil
		u.VerificationExpiresAt = nil
		u.UpdatedAt = r.s.now()
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrInvalidVerificationToken
}

func (r *UserRepository) ClearExpiredVerificationTokens(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, u := range r.s.users {
		if u.VerificationTokenHash != nil && u.VerificationExpiresAt != nil && !u.VerificationExpiresAt.After(now) {
			u.VerificationTokenHash = nil
			u.VerificationExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// ---------- Refresh tokens ----------

type RefreshTokenRepository struct{ s *Store }

func (r *RefreshTokenRepository) Insert(_ context.Context, t *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = uuid.NewString()
	cp := *t
	r.s.refresh[t.TokenHash] = &cp
	return nil
}

func (r *RefreshTokenRepository) FindByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.refresh[tokenHash]
	if !ok {
		return nil, domain.ErrUnknownToken
	}
	cp := *t
	return &cp, nil
}

func (r *RefreshTokenRepository) Rotate(_ context.Context, tokenHash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refresh[tokenHash]
	if !ok || !t.Active(now) {
		return nil, domain.ErrTokenNotActive
	}
	t.Revoked = true
	t.RevokedAt = &now

	next.ID = uuid.NewString()
	next.UserID = t.UserID
	cp := *next
	r.s.refresh[next.TokenHash] = &cp

	old := *t
	return &old, nil
}

func (r *RefreshTokenRepository) MarkRevoked(_ context.Context, tokenHash string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refresh[tokenHash]
	if !ok {
		return domain.ErrUnknownToken
	}
	t.Revoked = true
	if t.RevokedAt == nil {
		t.RevokedAt = &now
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(_ context.Context, userID string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, t := range r.s.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

// ---------- Jobs ----------

type JobRepository struct{ s *Store }

func (r *JobRepository) Create(_ context.Context, job *domain.Job) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	cp := *job
	cp.ID = uuid.NewString()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.s.jobs[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *JobRepository) GetByID(_ context.Context, id string) (*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *JobRepository) List(_ context.Context, in repository.ListJobsInput) ([]*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(in.Query)
	loc := strings.ToLower(in.Location)

	var out []*domain.Job
	for _, j := range r.s.jobs {
		switch {
		case in.EmployerID != "" && j.EmployerID != in.EmployerID:
			continue
		case in.EmployerID == "" && j.Status != domain.JobStatusOpen:
			continue
		case q != "" && !strings.Contains(strings.ToLower(j.Title), q) && !strings.Contains(strings.ToLower(j.Description), q):
			continue
		case loc != "" && !strings.Contains(strings.ToLower(j.Location), loc):
			continue
		case in.EmploymentType != "" && j.EmploymentType != in.EmploymentType:
			continue
		case in.CursorTime != nil && !before(j, *in.CursorTime, in.CursorID):
			continue
		}
		cp := *j
		out = append(out, &cp)
	}

	sort.Slice(out, func(a, b int) bool {
		return before(out[b], out[a].CreatedAt, out[a].ID)
	})
	if in.Limit > 0 && len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

// before reports whether j sorts after (t, id) in newest-first order.
func before(j *domain.Job, t time.Time, id string) bool {
	if j.CreatedAt.Equal(t) {
		return j.ID < id
	}
	return j.CreatedAt.Before(t)
}

func (r *JobRepository) Update(_ context.Context, job *domain.Job) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[job.ID]
	if !ok || j.EmployerID != job.EmployerID {
		return nil, domain.ErrJobNotFound
	}
	j.Title = job.Title
	j.Description = job.Description
	j.Location = job.Location
	j.Remote = job.Remote
	j.EmploymentType = job.EmploymentType
	j.SalaryMin = job.SalaryMin
	j.SalaryMax = job.SalaryMax
	j.ClosesAt = job.ClosesAt
	j.UpdatedAt = r.s.now()

	cp := *j
	return &cp, nil
}

func (r *JobRepository) Close(_ context.Context, id, employerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok || j.EmployerID != employerID {
		return domain.ErrJobNotFound
	}
	j.Status = domain.JobStatusClosed
	j.UpdatedAt = r.s.now()
	return nil
}

func (r *JobRepository) CloseExpired(_ context.Context, now time.Time, limit int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, j := range r.s.jobs {
		if n >= limit {
			break
		}
		if j.Status == domain.JobStatusOpen && j.ClosesAt != nil && !j.ClosesAt.After(now) {
			j.Status = domain.JobStatusClosed
			j.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ---------- Applications ----------

type ApplicationRepository struct{ s *Store }

func (r *ApplicationRepository) Create(_ context.Context, a *domain.Application) (*domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.applications {
		if existing.JobID == a.JobID && existing.CandidateID == a.CandidateID {
			return nil, domain.ErrAlreadyApplied
		}
	}

	now := r.s.now()
	cp := *a
	cp.ID = uuid.NewString()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.s.applications[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *ApplicationRepository) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.applications[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *ApplicationRepository) ListByCandidate(_ context.Context, candidateID string) ([]*domain.Application, error) {
	return r.filter(func(a *domain.Application) bool { return a.CandidateID == candidateID }), nil
}

func (r *ApplicationRepository) ListByJob(_ context.Context, jobID string) ([]*domain.Application, error) {
	return r.filter(func(a *domain.Application) bool { return a.JobID == jobID }), nil
}

func (r *ApplicationRepository) filter(keep func(*domain.Application) bool) []*domain.Application {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Application{}
	for _, a := range r.s.applications {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *ApplicationRepository) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.applications[id]
	if !ok || a.Status.Final() {
		return nil, domain.ErrInvalidStatusChange
	}
	a.Status = status
	a.UpdatedAt = r.s.now()
	cp := *a
	return &cp, nil
}

// ---------- Profiles ----------

type ProfileRepository struct{ s *Store }

func (r *ProfileRepository) GetCandidate(_ context.Context, userID string) (*domain.CandidateProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.candidates[userID]
	if !ok {
		return &domain.CandidateProfile{UserID: userID, Skills: []string{}}, nil
	}
	cp := *p
	cp.Skills = append([]string{}, p.Skills...)
	return &cp, nil
}

func (r *ProfileRepository) UpsertCandidate(_ context.Context, p *domain.CandidateProfile) (*domain.CandidateProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *p
	cp.Skills = append([]string{}, p.Skills...)
	cp.UpdatedAt = r.s.now()
	r.s.candidates[p.UserID] = &cp

	out := cp
	return &out, nil
}

func (r *ProfileRepository) GetCompany(_ context.Context, userID string) (*domain.CompanyProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.companies[userID]
	if !ok {
		return &domain.CompanyProfile{UserID: userID}, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProfileRepository) UpsertCompany(_ context.Context, p *domain.CompanyProfile) (*domain.CompanyProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *p
	cp.UpdatedAt = r.s.now()
	r.s.companies[p.UserID] = &cp

	out := cp
	return &out, nil
}

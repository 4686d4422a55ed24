package usecase_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/infrastructure/memory"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

// clock is a settable time source shared by the service under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Now()} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type tokenFixture struct {
	store  *memory.Store
	tokens *usecase.TokenService
	clock  *clock
	user   *domain.User
}

func newTokenFixture(t *testing.T, role domain.Role) *tokenFixture {
	t.Helper()
	store := memory.NewStore()
	clk := newClock()
	tokens := usecase.NewTokenService(store.Users(), store.RefreshTokens(), []byte(testJWTKey),
		usecase.WithAccessTTL(15*time.Minute),
		usecase.WithRefreshTTL(24*time.Hour),
		usecase.WithClock(clk.Now),
	)

	user, err := store.Users().Create(context.Background(), &domain.User{
		Email: "token-test@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &tokenFixture{store: store, tokens: tokens, clock: clk, user: user}
}

// ---- access tokens ----

func TestVerifyAccessToken_RoundTrip(t *testing.T) {
	for _, role := range domain.Roles {
		t.Run(string(role), func(t *testing.T) {
			f := newTokenFixture(t, role)

			tok, exp, err := f.tokens.IssueAccessToken(f.user)
			if err != nil {
				t.Fatalf("IssueAccessToken: %v", err)
			}
			if want := f.clock.Now().Add(15 * time.Minute); !exp.Equal(want) {
				t.Errorf("expiresAt = %v, want %v", exp, want)
			}

			id, err := f.tokens.VerifyAccessToken(tok)
			if err != nil {
				t.Fatalf("VerifyAccessToken: %v", err)
			}
			if id.UserID != f.user.ID || id.Role != role {
				t.Errorf("identity = %+v, want {%s %s}", id, f.user.ID, role)
			}
		})
	}
}

func TestVerifyAccessToken_TamperedPayload(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	tok, _, _ := f.tokens.IssueAccessToken(f.user)

	parts := strings.Split(tok, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	forged := strings.Replace(string(payload), `"candidate"`, `"employer"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = f.tokens.VerifyAccessToken(strings.Join(parts, "."))
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAccessToken_TamperedSignature(t *testing.T) {
	f := newTokenFixture(t, domain.RoleEmployer)
	tok, _, _ := f.tokens.IssueAccessToken(f.user)

	// The first signature character carries six full bits, unlike the last.
	i := strings.LastIndex(tok, ".") + 1
	replacement := byte('A')
	if tok[i] == 'A' {
		replacement = 'B'
	}
	tampered := tok[:i] + string(replacement) + tok[i+1:]

	if _, err := f.tokens.VerifyAccessToken(tampered); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	f := newTokenFixture(t, domain.RoleEmployer)
	now := f.clock.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := jwt.MapClaims{"sub": f.user.ID, "role": "employer", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}
	with := func(k string, v any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for kk, vv := range valid {
			c[kk] = vv
		}
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
		return c
	}

	cases := map[string]string{
		"garbage":        "not.a.jwt",
		"empty":          "",
		"wrong secret":   sign(jwt.SigningMethodHS256, []byte("another-secret-that-is-32-chars-long"), valid),
		"alg none":       sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
		"HS512":          sign(jwt.SigningMethodHS512, []byte(testJWTKey), valid),
		"unknown role":   sign(jwt.SigningMethodHS256, []byte(testJWTKey), with("role", "admin")),
		"missing role":   sign(jwt.SigningMethodHS256, []byte(testJWTKey), with("role", nil)),
		"missing sub":    sign(jwt.SigningMethodHS256, []byte(testJWTKey), with("sub", nil)),
		"missing exp":    sign(jwt.SigningMethodHS256, []byte(testJWTKey), with("exp", nil)),
		"not yet active": sign(jwt.SigningMethodHS256, []byte(testJWTKey), with("nbf", now.Add(time.Hour).Unix())),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.tokens.VerifyAccessToken(tok); !errors.Is(err, domain.ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	tok, _, _ := f.tokens.IssueAccessToken(f.user)

	f.clock.Advance(15*time.Minute + time.Second)

	if _, err := f.tokens.VerifyAccessToken(tok); !errors.Is(err, domain.ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestIssueAccessToken_RejectsUnknownRole(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	u := *f.user
	u.Role = "admin"

	if _, _, err := f.tokens.IssueAccessToken(&u); !errors.Is(err, domain.ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
}

// ---- refresh tokens ----

func TestIssueRefreshToken_StoresHashAndClientInfo(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	ctx := context.Background()

	raw, exp, err := f.tokens.IssueRefreshToken(ctx, f.user, domain.ClientInfo{UserAgent: "curl/8", IP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars", len(raw))
	}
	if want := f.clock.Now().Add(24 * time.Hour); !exp.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", exp, want)
	}

	if _, err := f.store.RefreshTokens().FindByHash(ctx, raw); !errors.Is(err, domain.ErrUnknownToken) {
		t.Error("raw token must not be the storage key")
	}
	stored, err := f.store.RefreshTokens().FindByHash(ctx, fmt.Sprintf("%x", sha256.Sum256([]byte(raw))))
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if stored.UserAgent != "curl/8" || stored.IP != "203.0.113.7" || stored.UserID != f.user.ID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRefresh_SingleUse(t *testing.T) {
	f := newTokenFixture(t, domain.RoleEmployer)
	ctx := context.Background()

	pair, err := f.tokens.IssuePair(ctx, f.user, domain.ClientInfo{})
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	rotatedBefore := testutil.ToFloat64(metrics.RefreshRotationsTotal.WithLabelValues("rotated"))

	next, err := f.tokens.Refresh(ctx, pair.RefreshToken, domain.ClientInfo{})
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if next.AccessTTL != 15*time.Minute || !next.AccessExpiresAt.Equal(f.clock.Now().Add(15*time.Minute)) {
		t.Errorf("access ttl = %v, expires at %v", next.AccessTTL, next.AccessExpiresAt)
	}
	id, err := f.tokens.VerifyAccessToken(next.AccessToken)
	if err != nil || id.UserID != f.user.ID || id.Role != domain.RoleEmployer {
		t.Errorf("new access token identity = %+v, err = %v", id, err)
	}

	if _, err = f.tokens.Refresh(ctx, pair.RefreshToken, domain.ClientInfo{}); !errors.Is(err, domain.ErrRevokedToken) {
		t.Errorf("second Refresh err = %v, want ErrRevokedToken", err)
	}
	if _, err = f.tokens.Refresh(ctx, next.RefreshToken, domain.ClientInfo{}); err != nil {
		t.Errorf("rotated token should still work: %v", err)
	}

	if got := testutil.ToFloat64(metrics.RefreshRotationsTotal.WithLabelValues("rotated")) - rotatedBefore; got != 2 {
		t.Errorf("rotated delta = %v, want 2", got)
	}
}

func TestRefresh_Unknown(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)

	for _, raw := range []string{"", "deadbeef"} {
		if _, err := f.tokens.Refresh(context.Background(), raw, domain.ClientInfo{}); !errors.Is(err, domain.ErrUnknownToken) {
			t.Errorf("Refresh(%q) err = %v, want ErrUnknownToken", raw, err)
		}
	}
}

func TestRefresh_Expired(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	ctx := context.Background()

	raw, _, _ := f.tokens.IssueRefreshToken(ctx, f.user, domain.ClientInfo{})
	f.clock.Advance(24 * time.Hour)

	if _, err := f.tokens.Refresh(ctx, raw, domain.ClientInfo{}); !errors.Is(err, domain.ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestRefresh_ConcurrentDoubleSubmit(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	ctx := context.Background()

	raw, _, _ := f.tokens.IssueRefreshToken(ctx, f.user, domain.ClientInfo{})

	const callers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.tokens.Refresh(ctx, raw, domain.ClientInfo{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	for _, err := range others {
		if !errors.Is(err, domain.ErrRevokedToken) && !errors.Is(err, domain.ErrUnknownToken) {
			t.Errorf("loser err = %v, want ErrRevokedToken or ErrUnknownToken", err)
		}
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	ctx := context.Background()

	raw, _, _ := f.tokens.IssueRefreshToken(ctx, f.user, domain.ClientInfo{})

	if err := f.tokens.Revoke(ctx, raw); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	if err := f.tokens.Revoke(ctx, raw); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if _, err := f.tokens.Refresh(ctx, raw, domain.ClientInfo{}); !errors.Is(err, domain.ErrRevokedToken) {
		t.Errorf("Refresh after revoke err = %v, want ErrRevokedToken", err)
	}
	if err := f.tokens.Revoke(ctx, "never-issued"); !errors.Is(err, domain.ErrUnknownToken) {
		t.Errorf("Revoke unknown err = %v, want ErrUnknownToken", err)
	}
}

func TestRevokeAll(t *testing.T) {
	f := newTokenFixture(t, domain.RoleCandidate)
	ctx := context.Background()

	a, _, _ := f.tokens.IssueRefreshToken(ctx, f.user, domain.ClientInfo{})
	b, _, _ := f.tokens.IssueRefreshToken(ctx, f.user, domain.ClientInfo{})

	n, err := f.tokens.RevokeAll(ctx, f.user.ID)
	if err != nil || n != 2 {
		t.Fatalf("RevokeAll = %d, %v; want 2, nil", n, err)
	}
	for _, raw := range []string{a, b} {
		if _, err := f.tokens.Refresh(ctx, raw, domain.ClientInfo{}); !errors.Is(err, domain.ErrRevokedToken) {
			t.Errorf("err = %v, want ErrRevokedToken", err)
		}
	}
}

func TestRefresh_StorageFailureIsInternal(t *testing.T) {
	boom := errors.New("connection refused")
	cases := map[string]*fakeRefreshRepo{
		"lookup": {
			findByHash: func(context.Context, string) (*domain.RefreshToken, error) { return nil, boom },
		},
		"rotate": {
			rotate: func(context.Context, string, time.Time, *domain.RefreshToken) (*domain.RefreshToken, error) {
				return nil, boom
			},
		},
	}

	for name, repo := range cases {
		t.Run(name, func(t *testing.T) {
			f := newTokenFixture(t, domain.RoleCandidate)
			repo.RefreshTokenRepository = f.store.RefreshTokens()
			tokens := usecase.NewTokenService(f.store.Users(), repo, []byte(testJWTKey))

			raw, _, err := tokens.IssueRefreshToken(context.Background(), f.user, domain.ClientInfo{})
			if err != nil {
				t.Fatalf("IssueRefreshToken: %v", err)
			}

			_, err = tokens.Refresh(context.Background(), raw, domain.ClientInfo{})
			if !errors.Is(err, boom) {
				t.Errorf("err = %v, want wrapped storage error", err)
			}
			for _, sentinel := range []error{domain.ErrUnknownToken, domain.ErrRevokedToken, domain.ErrExpiredToken} {
				if errors.Is(err, sentinel) {
					t.Errorf("storage failure must not look like %v", sentinel)
				}
			}
		})
	}
}

// A transient failure during rotation must not spend the presented token.
func TestRefresh_TransientFailureKeepsSession(t *testing.T) {
	boom := errors.New("db down")

	t.Run("rotate", func(t *testing.T) {
		f := newTokenFixture(t, domain.RoleCandidate)
		failed := false
		repo := &fakeRefreshRepo{
			RefreshTokenRepository: f.store.RefreshTokens(),
			rotate: func(ctx context.Context, hash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error) {
				if !failed {
					failed = true
					return nil, boom
				}
				return f.store.RefreshTokens().Rotate(ctx, hash, now, next)
			},
		}
		tokens := usecase.NewTokenService(f.store.Users(), repo, []byte(testJWTKey), usecase.WithClock(f.clock.Now))
		assertRetrySucceeds(t, tokens, f.user, boom)
	})

	t.Run("user lookup", func(t *testing.T) {
		f := newTokenFixture(t, domain.RoleCandidate)
		users := &flakyUsers{UserRepository: f.store.Users(), err: boom}
		tokens := usecase.NewTokenService(users, f.store.RefreshTokens(), []byte(testJWTKey), usecase.WithClock(f.clock.Now))
		assertRetrySucceeds(t, tokens, f.user, boom)
	})
}

func assertRetrySucceeds(t *testing.T, tokens *usecase.TokenService, user *domain.User, want error) {
	t.Helper()
	ctx := context.Background()

	raw, _, err := tokens.IssueRefreshToken(ctx, user, domain.ClientInfo{})
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	if _, err = tokens.Refresh(ctx, raw, domain.ClientInfo{}); !errors.Is(err, want) {
		t.Fatalf("first Refresh err = %v, want %v", err, want)
	}

	pair, err := tokens.Refresh(ctx, raw, domain.ClientInfo{})
	if err != nil {
		t.Fatalf("retry Refresh: %v", err)
	}
	if _, err = tokens.VerifyAccessToken(pair.AccessToken); err != nil {
		t.Errorf("retry access token: %v", err)
	}
	if _, err = tokens.Refresh(ctx, raw, domain.ClientInfo{}); !errors.Is(err, domain.ErrRevokedToken) {
		t.Errorf("third Refresh err = %v, want ErrRevokedToken", err)
	}
	if _, err = tokens.Refresh(ctx, pair.RefreshToken, domain.ClientInfo{}); err != nil {
		t.Errorf("rotated token should work: %v", err)
	}
}

// fakeRefreshRepo overrides selected calls of an embedded repository.
type fakeRefreshRepo struct {
	repository.RefreshTokenRepository
	findByHash func(ctx context.Context, hash string) (*domain.RefreshToken, error)
	rotate     func(ctx context.Context, hash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error)
}

func (r *fakeRefreshRepo) FindByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	if r.findByHash != nil {
		return r.findByHash(ctx, hash)
	}
	return r.RefreshTokenRepository.FindByHash(ctx, hash)
}

func (r *fakeRefreshRepo) Rotate(ctx context.Context, hash string, now time.Time, next *domain.RefreshToken) (*domain.RefreshToken, error) {
	if r.rotate != nil {
		return r.rotate(ctx, hash, now, next)
	}
	return r.RefreshTokenRepository.Rotate(ctx, hash, now, next)
}

// flakyUsers fails the first FindByID with err.
type flakyUsers struct {
	repository.UserRepository
	err    error
	failed bool
}

func (u *flakyUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if !u.failed {
		u.failed = true
		return nil, u.err
	}
	return u.UserRepository.FindByID(ctx, id)
}

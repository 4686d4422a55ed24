package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/metrics"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	refreshTokenBytes = 32
)

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access tokens and runs the refresh-token
// lifecycle. The secret is fixed for the lifetime of the service.
type TokenService struct {
	users      repository.UserRepository
	refresh    repository.RefreshTokenRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type TokenOption func(*TokenService)

func WithAccessTTL(d time.Duration) TokenOption {
	return func(s *TokenService) { s.accessTTL = d }
}

func WithRefreshTTL(d time.Duration) TokenOption {
	return func(s *TokenService) { s.refreshTTL = d }
}

// WithClock overrides time.Now; used by tests to step past expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(users repository.UserRepository, refresh repository.RefreshTokenRepository, secret []byte, opts ...TokenOption) *TokenService {
	s := &TokenService{
		users:      users,
		refresh:    refresh,
		secret:     append([]byte(nil), secret...),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL is reported to clients as expires_in.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken signs {sub, role, iat, exp} with HS256.
func (s *TokenService) IssueAccessToken(user *domain.User) (string, time.Time, error) {
	if !user.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue access token: %w", domain.ErrInvalidRole)
	}

	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	claims := accessClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	return signed, expiresAt, nil
}

// VerifyAccessToken never touches storage. It returns domain.ErrExpiredToken
// for a well-signed token past its expiry and domain.ErrInvalidToken for
// everything else that fails.
func (s *TokenService) VerifyAccessToken(raw string) (domain.Identity, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.ErrExpiredToken
		}
		return domain.Identity{}, domain.ErrInvalidToken
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{UserID: claims.Subject, Role: role}, nil
}

// IssueRefreshToken persists the SHA-256 of a fresh random value and returns
// the raw value, which is only ever held by the client.
func (s *TokenService) IssueRefreshToken(ctx context.Context, user *domain.User, client domain.ClientInfo) (string, time.Time, error) {
	raw, rt, err := s.newRefreshToken(user, client)
	if err != nil {
		return "", time.Time{}, err
	}
	if err = s.refresh.Insert(ctx, rt); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return raw, rt.ExpiresAt, nil
}

func (s *TokenService) newRefreshToken(user *domain.User, client domain.ClientInfo) (string, *domain.RefreshToken, error) {
	raw, err := randomToken()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	return raw, &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
		UserAgent: client.UserAgent,
		IP:        client.IP,
	}, nil
}

// IssuePair mints an access token and a persisted refresh token for user.
func (s *TokenService) IssuePair(ctx context.Context, user *domain.User, client domain.ClientInfo) (*domain.TokenPair, error) {
	access, accessExp, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(ctx, user, client)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		AccessTTL:        s.accessTTL,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// single-use: revoking it and storing its replacement is one repository call,
// so a failure anywhere before that call leaves the presented token usable.
func (s *TokenService) Refresh(ctx context.Context, raw string, client domain.ClientInfo) (*domain.TokenPair, error) {
	pair, err := s.refreshPair(ctx, raw, client)
	metrics.RefreshRotationsTotal.WithLabelValues(rotationOutcome(err)).Inc()
	return pair, err
}

func (s *TokenService) refreshPair(ctx context.Context, raw string, client domain.ClientInfo) (*domain.TokenPair, error) {
	if raw == "" {
		return nil, domain.ErrUnknownToken
	}
	tokenHash := hashToken(raw)

	current, err := s.refresh.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownToken) {
			return nil, domain.ErrUnknownToken
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	now := s.now()
	if !current.Active(now) {
		return nil, inactiveReason(current, now)
	}

	user, err := s.users.FindByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnknownToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	access, accessExp, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, next, err := s.newRefreshToken(user, client)
	if err != nil {
		return nil, err
	}

	if _, err = s.refresh.Rotate(ctx, tokenHash, now, next); err != nil {
		if errors.Is(err, domain.ErrTokenNotActive) {
			return nil, s.classify(ctx, tokenHash)
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		AccessTTL:        s.accessTTL,
		RefreshToken:     refresh,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// classify explains why a rotation matched nothing.
func (s *TokenService) classify(ctx context.Context, tokenHash string) error {
	rt, err := s.refresh.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownToken) {
			return domain.ErrUnknownToken
		}
		return fmt.Errorf("find refresh token: %w", err)
	}
	return inactiveReason(rt, s.now())
}

func inactiveReason(rt *domain.RefreshToken, now time.Time) error {
	if rt.Revoked {
		return domain.ErrRevokedToken
	}
	if !now.Before(rt.ExpiresAt) {
		return domain.ErrExpiredToken
	}
	// Active now but not claimable a moment ago: another caller won the race.
	return domain.ErrRevokedToken
}

// Revoke is idempotent. Unknown tokens are reported so logout can ignore them.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return domain.ErrUnknownToken
	}
	if err := s.refresh.MarkRevoked(ctx, hashToken(raw), s.now()); err != nil {
		if errors.Is(err, domain.ErrUnknownToken) {
			return err
		}
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll revokes every active refresh token the user owns.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int, error) {
	n, err := s.refresh.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return n, nil
}

func rotationOutcome(err error) string {
	switch {
	case err == nil:
		return "rotated"
	case errors.Is(err, domain.ErrUnknownToken):
		return "unknown"
	case errors.Is(err, domain.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	default:
		return "error"
	}
}

func randomToken() (string, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func hashToken(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

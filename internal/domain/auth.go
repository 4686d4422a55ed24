package domain

import (
	"errors"
	"fmt"
	"time"
)

// Token and access errors. Each maps to one stable wire code in the HTTP layer.
var (
	ErrNoToken      = errors.New("missing or malformed bearer token")
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
	ErrUnknownToken = errors.New("refresh token not found")
	ErrRevokedToken = errors.New("refresh token has been revoked")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrTokenNotActive is returned by the store when a conditional rotation
	// matched no active row; callers classify it with a follow-up lookup.
	ErrTokenNotActive = errors.New("refresh token is not active")
)

// Account errors.
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrEmailTaken               = errors.New("email is already registered")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrInvalidVerificationToken = errors.New("verification token is invalid or expired")
	ErrInvalidRole              = errors.New("invalid role")
)

// Role is closed to the two account kinds the job board knows about.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleEmployer  Role = "employer"
)

// Roles lists every valid role.
var Roles = []Role{RoleCandidate, RoleEmployer}

// ParseRole rejects anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCandidate:
		return RoleCandidate, nil
	case RoleEmployer:
		return RoleEmployer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          Role
	FirstName     string
	LastName      string
	EmailVerified bool

	// VerificationTokenHash is the SHA-256 of the mailed token; nil once consumed.
	VerificationTokenHash *string
	VerificationExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken is keyed by the SHA-256 of the opaque value handed to the client.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	UserAgent string
	IP        string
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Identity is what a verified access token proves about the caller.
type Identity struct {
	UserID string
	Role   Role
}

// ClientInfo is recorded on refresh tokens for audit only.
type ClientInfo struct {
	UserAgent string
	IP        string
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	AccessTTL        time.Duration
	RefreshToken     string
	RefreshExpiresAt time.Time
}

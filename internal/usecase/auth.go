package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/email"
	"github.com/ErlanBelekov/jobgraph/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const defaultVerificationTTL = 24 * time.Hour

type AuthUsecase struct {
	users           repository.UserRepository
	tokens          *TokenService
	email           email.Sender
	bcryptCost      int
	verificationTTL time.Duration
	appBaseURL      string

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthUsecase(users repository.UserRepository, tokens *TokenService, emailSender email.Sender, bcryptCost int, verificationTTL time.Duration, appBaseURL string) *AuthUsecase {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if verificationTTL == 0 {
		verificationTTL = defaultVerificationTTL
	}
	return &AuthUsecase{
		users:           users,
		tokens:          tokens,
		email:           emailSender,
		bcryptCost:      bcryptCost,
		verificationTTL: verificationTTL,
		appBaseURL:      strings.TrimRight(appBaseURL, "/"),
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	Role      domain.Role
	FirstName string
	LastName  string
}

// Register creates the account and mails an email-verification link. A mail
// failure does not undo the registration; the error is returned wrapped so
// the caller can log it.
func (u *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if !input.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), u.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rawToken, err := randomToken()
	if err != nil {
		return nil, err
	}
	tokenHash := hashToken(rawToken)
	expiresAt := time.Now().Add(u.verificationTTL)

	user, err := u.users.Create(ctx, &domain.User{
		Email:                 normalizeEmail(input.Email),
		PasswordHash:          string(hash),
		Role:                  input.Role,
		FirstName:             strings.TrimSpace(input.FirstName),
		LastName:              strings.TrimSpace(input.LastName),
		VerificationTokenHash: &tokenHash,
		VerificationExpiresAt: &expiresAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err = u.sendVerification(ctx, user, rawToken); err != nil {
		return user, err
	}
	return user, nil
}

func (u *AuthUsecase) sendVerification(ctx context.Context, user *domain.User, rawToken string) error {
	link := u.appBaseURL + "/auth/verify-email?token=" + rawToken
	subject := "Confirm your JobGraph email"
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Confirm your email address (link expires in %s):</p><p><a href="%s">%s</a></p>`,
		user.FirstName, u.verificationTTL, link, link,
	)
	if err := u.email.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// timingHash is compared against when the email is unknown so that login
// takes the same time whether or not the account exists. It shares the cost
// of real password hashes.
func (u *AuthUsecase) timingHash() []byte {
	u.dummyOnce.Do(func() {
		u.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("jobgraph-timing-equalizer"), u.bcryptCost)
	})
	return u.dummyHash
}

// Login checks the password and issues an access/refresh pair.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string, client domain.ClientInfo) (*domain.TokenPair, *domain.User, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(u.timingHash(), []byte(password))
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := u.tokens.IssuePair(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh rotates a refresh token; see TokenService.Refresh.
func (u *AuthUsecase) Refresh(ctx context.Context, rawToken string, client domain.ClientInfo) (*domain.TokenPair, error) {
	return u.tokens.Refresh(ctx, rawToken, client)
}

// Logout revokes one refresh token. Unknown tokens are not an error.
func (u *AuthUsecase) Logout(ctx context.Context, rawToken string) error {
	if err := u.tokens.Revoke(ctx, rawToken); err != nil && !errors.Is(err, domain.ErrUnknownToken) {
		return err
	}
	return nil
}

func (u *AuthUsecase) LogoutAll(ctx context.Context, userID string) (int, error) {
	return u.tokens.RevokeAll(ctx, userID)
}

// VerifyEmail consumes the mailed token.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error) {
	if rawToken == "" {
		return nil, domain.ErrInvalidVerificationToken
	}
	user, err := u.users.VerifyEmail(ctx, hashToken(rawToken), time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidVerificationToken) {
			return nil, err
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the hash and revokes every refresh token, so other
// sessions end when their current access token expires.
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), u.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err = u.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if _, err = u.tokens.RevokeAll(ctx, userID); err != nil {
		return err
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/handler"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/response"
	"github.com/ErlanBelekov/jobgraph/internal/usecase"
	"github.com/gin-gonic/gin"
)

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	register       func(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	login          func(ctx context.Context, email, password string, client domain.ClientInfo) (*domain.TokenPair, *domain.User, error)
	refresh        func(ctx context.Context, rawToken string, client domain.ClientInfo) (*domain.TokenPair, error)
	logout         func(ctx context.Context, rawToken string) error
	logoutAll      func(ctx context.Context, userID string) (int, error)
	verifyEmail    func(ctx context.Context, rawToken string) (*domain.User, error)
	me             func(ctx context.Context, userID string) (*domain.User, error)
	changePassword func(ctx context.Context, userID, current, next string) error
}

func (f *fakeAuthUsecase) Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error) {
	return f.register(ctx, input)
}

func (f *fakeAuthUsecase) Login(ctx context.Context, email, password string, client domain.ClientInfo) (*domain.TokenPair, *domain.User, error) {
	return f.login(ctx, email, password, client)
}

func (f *fakeAuthUsecase) Refresh(ctx context.Context, rawToken string, client domain.ClientInfo) (*domain.TokenPair, error) {
	return f.refresh(ctx, rawToken, client)
}

func (f *fakeAuthUsecase) Logout(ctx context.Context, rawToken string) error {
	return f.logout(ctx, rawToken)
}

func (f *fakeAuthUsecase) LogoutAll(ctx context.Context, userID string) (int, error) {
	return f.logoutAll(ctx, userID)
}

func (f *fakeAuthUsecase) VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error) {
	return f.verifyEmail(ctx, rawToken)
}

func (f *fakeAuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return f.me(ctx, userID)
}

func (f *fakeAuthUsecase) ChangePassword(ctx context.Context, userID, current, next string) error {
	return f.changePassword(ctx, userID, current, next)
}

func newAuthEngine(uc *fakeAuthUsecase) *gin.Engine {
	h := handler.NewAuthHandler(uc, testLogger)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/verify-email", h.VerifyEmail)
	r.GET("/auth/me", authAs(employer), h.Me)
	r.POST("/auth/logout-all", authAs(employer), h.LogoutAll)
	r.POST("/auth/change-password", authAs(employer), h.ChangePassword)
	return r
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{ID: "u1", Email: "ada@example.com", Role: role, FirstName: "Ada", LastName: "Lovelace"}
}

func testPair() *domain.TokenPair {
	now := time.Now()
	return &domain.TokenPair{
		AccessToken:      "access",
		RefreshToken:     "refresh",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		AccessTTL:        15 * time.Minute,
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

// ---- Register ----

func TestRegister_Validation(t *testing.T) {
	uc := &fakeAuthUsecase{}
	cases := map[string]string{
		"bad json":       `{bad json}`,
		"bad email":      `{"email":"nope","password":"longenough","role":"candidate","first_name":"A","last_name":"B"}`,
		"short password": `{"email":"a@b.co","password":"short","role":"candidate","first_name":"A","last_name":"B"}`,
		"unknown role":   `{"email":"a@b.co","password":"longenough","role":"admin","first_name":"A","last_name":"B"}`,
		"missing name":   `{"email":"a@b.co","password":"longenough","role":"candidate"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/register", body)
			wantError(t, w, env, http.StatusBadRequest, response.CodeValidation)
		})
	}
}

func TestRegister_Created(t *testing.T) {
	var got usecase.RegisterInput
	uc := &fakeAuthUsecase{register: func(_ context.Context, in usecase.RegisterInput) (*domain.User, error) {
		got = in
		return testUser(in.Role), nil
	}}

	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/register",
		`{"email":"ada@example.com","password":"longenough","role":"employer","first_name":"Ada","last_name":"Lovelace"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if got.Role != domain.RoleEmployer || got.Email != "ada@example.com" {
		t.Errorf("usecase input = %+v", got)
	}

	var data struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeData(t, env, &data)
	if data.User.ID != "u1" || data.User.Role != "employer" {
		t.Errorf("data = %+v", data)
	}
	if strings.Contains(string(env.Data), "password") {
		t.Errorf("response must not leak the password hash: %s", env.Data)
	}
}

func TestRegister_MailFailureStillCreated(t *testing.T) {
	uc := &fakeAuthUsecase{register: func(context.Context, usecase.RegisterInput) (*domain.User, error) {
		return testUser(domain.RoleCandidate), errors.New("send verification email: smtp down")
	}}
	w, _ := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/register",
		`{"email":"ada@example.com","password":"longenough","role":"candidate","first_name":"Ada","last_name":"L"}`)
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	uc := &fakeAuthUsecase{register: func(context.Context, usecase.RegisterInput) (*domain.User, error) {
		return nil, fmt.Errorf("create user: %w", domain.ErrEmailTaken)
	}}
	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/register",
		`{"email":"ada@example.com","password":"longenough","role":"candidate","first_name":"Ada","last_name":"L"}`)
	wantError(t, w, env, http.StatusConflict, response.CodeEmailTaken)
}

// ---- Login / Refresh ----

func TestLogin_ReturnsPair(t *testing.T) {
	var client domain.ClientInfo
	uc := &fakeAuthUsecase{login: func(_ context.Context, _, _ string, ci domain.ClientInfo) (*domain.TokenPair, *domain.User, error) {
		client = ci
		return testPair(), testUser(domain.RoleCandidate), nil
	}}

	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"x"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		User         *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeData(t, env, &data)
	if data.AccessToken != "access" || data.RefreshToken != "refresh" || data.TokenType != "Bearer" {
		t.Errorf("data = %+v", data)
	}
	if data.ExpiresIn != 900 {
		t.Errorf("expires_in = %d, want 900", data.ExpiresIn)
	}
	if data.User == nil || data.User.ID != "u1" {
		t.Error("login response should include the user")
	}
	if client.IP == "" {
		t.Error("client IP should be passed to the usecase")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	uc := &fakeAuthUsecase{login: func(context.Context, string, string, domain.ClientInfo) (*domain.TokenPair, *domain.User, error) {
		return nil, nil, domain.ErrInvalidCredentials
	}}
	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"x"}`)
	wantError(t, w, env, http.StatusUnauthorized, response.CodeInvalidCredentials)
}

func TestRefresh_ErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{domain.ErrUnknownToken, response.CodeUnknownToken},
		{domain.ErrRevokedToken, response.CodeRevokedToken},
		{domain.ErrExpiredToken, response.CodeExpiredToken},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			uc := &fakeAuthUsecase{refresh: func(context.Context, string, domain.ClientInfo) (*domain.TokenPair, error) {
				return nil, fmt.Errorf("refresh: %w", tc.err)
			}}
			w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/refresh", `{"refresh_token":"abc"}`)
			wantError(t, w, env, http.StatusUnauthorized, tc.code)
		})
	}
}

func TestRefresh_StorageFailureIs500(t *testing.T) {
	uc := &fakeAuthUsecase{refresh: func(context.Context, string, domain.ClientInfo) (*domain.TokenPair, error) {
		return nil, errors.New("claim refresh token: connection reset")
	}}
	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/refresh", `{"refresh_token":"abc"}`)
	wantError(t, w, env, http.StatusInternalServerError, response.CodeInternal)
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Error("internal error detail must not leak")
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	w, env := serve(t, newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/auth/refresh", `{}`)
	wantError(t, w, env, http.StatusBadRequest, response.CodeValidation)
}

// ---- Authenticated routes ----

func TestLogoutAll_UsesIdentity(t *testing.T) {
	var gotUser string
	uc := &fakeAuthUsecase{logoutAll: func(_ context.Context, userID string) (int, error) {
		gotUser = userID
		return 3, nil
	}}
	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/logout-all", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Revoked int `json:"revoked"`
	}
	decodeData(t, env, &data)
	if gotUser != employer.UserID || data.Revoked != 3 {
		t.Errorf("user = %s, revoked = %d", gotUser, data.Revoked)
	}
}

func TestChangePassword_UnknownUserIsUnauthorized(t *testing.T) {
	uc := &fakeAuthUsecase{changePassword: func(context.Context, string, string, string) error {
		return fmt.Errorf("find user: %w", domain.ErrUserNotFound)
	}}
	w, env := serve(t, newAuthEngine(uc), http.MethodPost, "/auth/change-password",
		`{"current_password":"old","new_password":"a new password"}`)
	wantError(t, w, env, http.StatusUnauthorized, response.CodeUnauthorized)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	uc := &fakeAuthUsecase{verifyEmail: func(context.Context, string) (*domain.User, error) {
		return nil, domain.ErrInvalidVerificationToken
	}}
	w, env := serve(t, newAuthEngine(uc), http.MethodGet, "/auth/verify-email?token=abc", "")
	wantError(t, w, env, http.StatusBadRequest, response.CodeInvalidVerificationToken)
}

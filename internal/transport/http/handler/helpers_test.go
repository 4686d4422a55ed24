package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/jobgraph/internal/domain"
	"github.com/ErlanBelekov/jobgraph/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// staticVerifier accepts any bearer token as the wrapped identity.
type staticVerifier struct{ id domain.Identity }

func (v staticVerifier) VerifyAccessToken(string) (domain.Identity, error) { return v.id, nil }

func authAs(id domain.Identity) gin.HandlerFunc {
	return middleware.Authenticate(staticVerifier{id}, testLogger)
}

var (
	candidate = domain.Identity{UserID: "cand-1", Role: domain.RoleCandidate}
	employer  = domain.Identity{UserID: "emp-1", Role: domain.RoleEmployer}
)

const (
	testJobID = "3f1c2a9e-5b7d-4e21-9a0c-6d8e4f2b1a77"
	testAppID = "9b4e7d12-0c3a-4f58-8e61-2a7c5d9f3b04"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer test")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w, env
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("code = %s, want %s", env.Error.Code, code)
	}
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if !env.Success {
		t.Fatalf("expected success envelope, got error %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

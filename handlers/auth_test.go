package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/services"
)

// fakeAuthService, handler testleri için AuthService. Her metodun davranışı
// alanlarla ayarlanır.
type fakeAuthService struct {
	loginResult *services.LoginResult
	loginErr    error

	refreshToken string // Refresh'e gelen son token
	refreshErr   error

	changeErr error
	changedID int64
}

func (f *fakeAuthService) Login(context.Context, *models.LoginRequest) (*services.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAuthService) Refresh(_ context.Context, token string) (string, error) {
	f.refreshToken = token
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	if token == "" {
		return "", fmt.Errorf("%w: refresh token required", pkg.ErrUnauthorized)
	}
	return "new-access", nil
}

func (f *fakeAuthService) Verify(string) (*models.AccessClaims, error) {
	return nil, pkg.ErrInvalidToken
}

func (f *fakeAuthService) ChangePassword(_ context.Context, id int64, _ *models.ChangePasswordRequest) error {
	f.changedID = id
	return f.changeErr
}

func newTestAuthHandler(svc services.AuthService, expose bool) *AuthHandler {
	return NewAuthHandler(svc, CookieSettings{Secure: true, MaxAge: 7 * 24 * time.Hour}, expose, zap.NewNop())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	t.Fatalf("refresh cookie not set")
	return nil
}

func TestLoginSetsCookieAndHidesRefreshToken(t *testing.T) {
	svc := &fakeAuthService{loginResult: &services.LoginResult{
		AccessToken: "acc", RefreshToken: "ref", Role: models.RoleDevOps, AccountID: 2,
	}}
	h := newTestAuthHandler(svc, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"bob","password":"devops123"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	c := refreshCookie(t, rec)
	if c.Value != "ref" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode || c.Path != "/auth" {
		t.Fatalf("unexpected cookie: %+v", c)
	}
	if c.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("cookie max-age = %d", c.MaxAge)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["accessToken"] != "acc" || body["role"] != "devops" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["refreshToken"]; ok {
		t.Fatalf("refresh token must not be in the body by default")
	}
}

func TestLoginExposesRefreshTokenWhenConfigured(t *testing.T) {
	svc := &fakeAuthService{loginResult: &services.LoginResult{AccessToken: "acc", RefreshToken: "ref", Role: models.RoleUser}}
	h := newTestAuthHandler(svc, true)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a","password":"b"}`)))

	var body models.LoginResponse
	decodeBody(t, rec, &body)
	if body.RefreshToken != "ref" {
		t.Fatalf("refresh token expected in body, got %+v", body)
	}
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"invalid credentials", `{"username":"a","password":"b"}`, pkg.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"malformed body", `{`, nil, http.StatusBadRequest, "invalid request body"},
		{"storage failure", `{"username":"a","password":"b"}`, errors.New("sql: database is locked"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAuthHandler(&fakeAuthService{loginErr: tt.err}, false)

			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body pkg.ErrorResponse
			decodeBody(t, rec, &body)
			if body.Error != tt.message {
				t.Fatalf("message = %q, want %q", body.Error, tt.message)
			}
		})
	}
}

func TestRefreshReadsCookieThenBody(t *testing.T) {
	svc := &fakeAuthService{}
	h := newTestAuthHandler(svc, false)

	// Cookie öncelikli.
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"from-body"}`))
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "from-cookie"})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusOK || svc.refreshToken != "from-cookie" {
		t.Fatalf("cookie refresh: status %d, token %q", rec.Code, svc.refreshToken)
	}
	var body models.RefreshResponse
	decodeBody(t, rec, &body)
	if body.AccessToken != "new-access" {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"from-body"}`)))
	if rec.Code != http.StatusOK || svc.refreshToken != "from-body" {
		t.Fatalf("body refresh: status %d, token %q", rec.Code, svc.refreshToken)
	}
}

func TestRefreshStatusCodes(t *testing.T) {
	h := newTestAuthHandler(&fakeAuthService{}, false)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("absent token: status = %d", rec.Code)
	}

	h = newTestAuthHandler(&fakeAuthService{refreshErr: pkg.ErrInvalidToken}, false)
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "tampered"})
	rec = httptest.NewRecorder()
	h.Refresh(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("invalid token: status = %d", rec.Code)
	}
}

func TestRefreshWithoutCookieIgnoresMalformedBody(t *testing.T) {
	for _, body := range []string{"not-json", "{", `{"refreshToken":`} {
		t.Run(body, func(t *testing.T) {
			h := newTestAuthHandler(&fakeAuthService{}, false)

			rec := httptest.NewRecorder()
			h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body)))

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var resp pkg.ErrorResponse
			decodeBody(t, rec, &resp)
			if resp.Error != "Refresh token required" {
				t.Fatalf("message = %q, want %q", resp.Error, "Refresh token required")
			}
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestAuthHandler(&fakeAuthService{}, false)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	c := refreshCookie(t, rec)
	if c.Value != "" || c.MaxAge >= 0 {
		t.Fatalf("cookie must be cleared: %+v", c)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestVerifyReturnsClaimsFromContext(t *testing.T) {
	h := newTestAuthHandler(&fakeAuthService{}, false)

	rec := httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without claims: status = %d", rec.Code)
	}

	claims := &models.AccessClaims{AccountID: 3, Username: "admin", Role: models.RoleAdmin}
	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec = httptest.NewRecorder()
	h.Verify(rec, req)

	var body struct {
		User struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, rec, &body)
	if body.User.ID != 3 || body.User.Username != "admin" || body.User.Role != "admin" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestChangePasswordMessages(t *testing.T) {
	claims := &models.AccessClaims{AccountID: 1, Username: "alice", Role: models.RoleUser}
	body := `{"currentPassword":"user123","newPassword":"new-password"}`

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"wrong current", fmt.Errorf("%w: incorrect current password", pkg.ErrInvalidCredentials), http.StatusUnauthorized, "Incorrect current password"},
		{"account gone", fmt.Errorf("%w: account not found", pkg.ErrNotFound), http.StatusNotFound, "not found: account not found"},
		{"too short", fmt.Errorf("%w: password too short", pkg.ErrBadRequest), http.StatusBadRequest, "bad request: password too short"},
		{"success", nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{changeErr: tt.err}
			h := newTestAuthHandler(svc, false)

			req := httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(body))
			req = req.WithContext(WithClaims(req.Context(), claims))
			rec := httptest.NewRecorder()
			h.ChangePassword(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if svc.changedID != 1 {
				t.Fatalf("service called with id %d", svc.changedID)
			}
			if tt.message != "" {
				var resp pkg.ErrorResponse
				decodeBody(t, rec, &resp)
				if resp.Error != tt.message {
					t.Fatalf("message = %q, want %q", resp.Error, tt.message)
				}
			}
		})
	}
}

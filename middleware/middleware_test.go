package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/akinalp/opsportal/handlers"
	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/pkg/ratelimit"
	"github.com/akinalp/opsportal/services"
)

// fakeAuth, sadece "good-<role>" token'larını kabul eder.
type fakeAuth struct{ services.AuthService }

func (fakeAuth) Verify(token string) (*models.AccessClaims, error) {
	role, ok := strings.CutPrefix(token, "good-")
	if !ok {
		return nil, pkg.ErrInvalidToken
	}
	return &models.AccessClaims{AccountID: 7, Username: "tester", Role: models.Role(role)}, nil
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body pkg.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireAuth(t *testing.T) {
	mw := NewAuthMiddleware(fakeAuth{})

	var seen *models.AccessClaims
	protected := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = handlers.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name      string
		header    string
		status    int
		challenge string
	}{
		{"missing header", "", http.StatusUnauthorized, "Bearer"},
		{"wrong scheme", "Basic good-user", http.StatusUnauthorized, "Bearer"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Bearer"},
		{"invalid token", "Bearer forged", http.StatusForbidden, pkg.InvalidTokenChallenge},
		{"valid token", "Bearer good-devops", http.StatusNoContent, ""},
		{"lowercase scheme", "bearer good-devops", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != tt.challenge {
				t.Fatalf("WWW-Authenticate = %q, want %q", got, tt.challenge)
			}
			if tt.status == http.StatusNoContent && (seen == nil || seen.Role != models.RoleDevOps) {
				t.Fatalf("claims not placed in context: %+v", seen)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	chain := NewAuthMiddleware(fakeAuth{}).Require(RequireRole(models.RoleAdmin)(okHandler))

	for _, role := range []string{"user", "devops"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/admin/users", nil)
		req.Header.Set("Authorization", "Bearer good-"+role)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: status = %d", role, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "Admin access required" {
			t.Fatalf("%s: message = %q", role, msg)
		}
		// Rol reddi token sorunu değildir; client refresh denememeli.
		if pkg.IsInvalidTokenChallenge(rec.Header()) {
			t.Fatalf("%s: role rejection carries the invalid_token challenge", role)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/admin/users", nil)
	req.Header.Set("Authorization", "Bearer good-admin")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin: status = %d", rec.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	limiter := ratelimit.NewMemoryLimiter(10, 15*time.Minute, clk)
	t.Cleanup(limiter.Stop)

	m := metrics.New(prometheus.NewRegistry())
	var reached int
	chain := NewLoginRateLimit(limiter, 15*time.Minute, m, zap.NewNop()).Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			reached++
			w.WriteHeader(http.StatusUnauthorized)
		}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 10; i++ {
		clk.Add(time.Second)
		if rec := send("10.0.0.1"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i+1, rec.Code)
		}
	}

	rec := send("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("11th attempt: status = %d", rec.Code)
	}
	if reached != 10 {
		t.Fatalf("credentials must not be checked once limited, reached %d", reached)
	}
	if rec.Header().Get("Retry-After") != "891" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if msg := errorMessage(t, rec); msg != "Too many login attempts from this IP, please try again after 15 minutes" {
		t.Fatalf("message = %q", msg)
	}
	if got := testutil.ToFloat64(m.LoginAttempts.WithLabelValues(metrics.OutcomeRateLimited)); got != 1 {
		t.Fatalf("rate limited counter = %v", got)
	}

	// Başka IP etkilenmez.
	if rec := send("10.0.0.2"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("other ip: status = %d", rec.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

func TestLoginRateLimitFailsOpen(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	chain := NewLoginRateLimit(brokenLimiter{}, 15*time.Minute, m, zap.NewNop()).Wrap(okHandler)

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	chain := chimw.RequestID(RequestLogger(zap.New(core))(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusNoContent) || fields["path"] != "/health" || fields["request_id"] == "" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "secret-token") {
			t.Fatalf("token leaked into logs")
		}
	}
}

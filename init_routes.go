// Package main: HTTP route registration.
//
// initRoutes, API endpoint'lerini mux'a bağlar ve global middleware
// zincirini kurar. Middleware chain helper'ları burada tanımlıdır:
//   - auth: access token doğrulaması
//   - authAdmin: auth + admin rolü
package main

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/config"
	"github.com/akinalp/opsportal/handlers"
	"github.com/akinalp/opsportal/middleware"
	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/services"
)

// initRoutes, route'ları kaydeder ve global middleware'lerle sarılmış
// handler'ı döner.
//
// Global zincir (dıştan içe): CORS → RequestID → RealIP (TRUST_PROXY) →
// Recoverer → RequestLogger → mux.
func initRoutes(
	h *Handlers,
	authService services.AuthService,
	loginLimit *middleware.LoginRateLimit,
	m *metrics.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// ─── Middleware Chain Helpers ───
	authMw := middleware.NewAuthMiddleware(authService)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(requireAdmin(handler))
	}

	// Auth
	mux.Handle("POST /auth/login", loginLimit.Wrap(http.HandlerFunc(h.Auth.Login)))
	mux.HandleFunc("POST /auth/refresh", h.Auth.Refresh)
	mux.HandleFunc("POST /auth/logout", h.Auth.Logout)
	mux.Handle("GET /auth/verify", auth(h.Auth.Verify))
	mux.Handle("POST /auth/change-password", auth(h.Auth.ChangePassword))

	// Admin: hesap yönetimi
	mux.Handle("GET /auth/admin/users", authAdmin(h.Admin.List))
	mux.Handle("POST /auth/admin/users", authAdmin(h.Admin.Create))
	mux.Handle("PUT /auth/admin/users/{id}", authAdmin(h.Admin.Update))
	mux.Handle("POST /auth/admin/users/{id}/reset-password", authAdmin(h.Admin.ResetPassword))
	mux.Handle("DELETE /auth/admin/users/{id}", authAdmin(h.Admin.Delete))

	// Operasyonel
	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", m.Handler())

	// WebSocket: token query parameter ile authenticate edilir
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	// ─── Global middleware ───
	var handler http.Handler = mux
	handler = middleware.RequestLogger(log)(handler)
	handler = chimw.Recoverer(handler)
	if cfg.Server.TrustProxy {
		handler = chimw.RealIP(handler)
	}
	handler = chimw.RequestID(handler)

	// ─── CORS ───
	// Refresh cookie tarayıcıdan gönderilebilsin diye credentials açık;
	// bu yüzden origin listesi wildcard olamaz.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "WWW-Authenticate"},
		AllowCredentials: true,
	})

	return corsHandler.Handler(handler)
}

// Package middleware: RoleMiddleware, rol bazlı yetki kontrolü.
//
// AuthMiddleware'den SONRA çalışır; context'te claims mevcuttur.
// Token'daki rol beklenen rol değilse → 403 Forbidden, veri dönmez.
//
// Kullanım:
//
//	authMw.Require(middleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(adminHandler.List)))
package middleware

import (
	"net/http"

	"github.com/akinalp/opsportal/handlers"
	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
)

// RequireRole, claims'teki rolün role'e eşit olmasını zorunlu kılar.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := handlers.ClaimsFromContext(r.Context())
			if !ok {
				pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}

			if claims.Role != role {
				pkg.ErrorWithMessage(w, http.StatusForbidden, roleDeniedMessage(role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func roleDeniedMessage(role models.Role) string {
	if role == models.RoleAdmin {
		return "Admin access required"
	}
	return "Insufficient role"
}

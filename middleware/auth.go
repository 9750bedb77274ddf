// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Middleware Pattern nedir?
// Her HTTP request, handler'a ulaşmadan önce bir veya daha fazla middleware'dan geçer.
// Middleware'lar zincir şeklinde çalışır: Auth → RequireRole → Handler
//
// Go'da middleware bir fonksiyondur:
//   func(next http.Handler) http.Handler
//
// "next" parametresi zincirdeki bir sonraki handler'dır.
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Eğer hata varsa next'i çağırmaz → request burada durur.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/akinalp/opsportal/handlers"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/services"
)

// AuthMiddleware, JWT access token doğrulama middleware'ı.
type AuthMiddleware struct {
	authService services.AuthService
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require, access token zorunlu kılan middleware.
//
// HTTP header formatı: Authorization: Bearer <token>
//
// Token yok → 401. Token geçersiz veya süresi dolmuş → 403 ve
// WWW-Authenticate: Bearer error="invalid_token". Bu header rol reddinden
// (RequireRole 403) farklı olarak client'a token yenilemesini söyler.
// Doğrulama stateless'tır: Credential Store'a gidilmez, claims olduğu gibi
// context'e eklenir.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := m.authService.Verify(token)
		if err != nil {
			if errors.Is(err, pkg.ErrForbidden) {
				w.Header().Set("WWW-Authenticate", pkg.InvalidTokenChallenge)
				pkg.ErrorWithMessage(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			pkg.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithClaims(r.Context(), claims)))
	})
}

// BearerToken, "Authorization: Bearer <token>" header'ından token'ı çıkarır.
// Header yoksa veya format farklıysa "" döner.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi çok basit ve "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı (business logic) içermez.
// Handler ASLA doğrudan DB'ye erişmez.
// Tüm akıl service'de, handler sadece köprü.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/services"
)

// RefreshCookieName, refresh token'ı taşıyan cookie'nin adı.
const RefreshCookieName = "refresh_token"

// refreshCookiePath: cookie sadece /auth altındaki isteklere gider.
const refreshCookiePath = "/auth"

// CookieSettings, refresh cookie'nin ortama bağlı ayarları.
type CookieSettings struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// AuthHandler, auth endpoint'lerini yöneten struct.
// Rate limiting handler'da değil, login route'unu saran middleware'dadır.
type AuthHandler struct {
	authService   services.AuthService
	cookie        CookieSettings
	exposeRefresh bool
	log           *zap.Logger
}

// NewAuthHandler, constructor.
//
// exposeRefresh: true ise login yanıt gövdesine refresh token da yazılır.
func NewAuthHandler(authService services.AuthService, cookie CookieSettings, exposeRefresh bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		cookie:        cookie,
		exposeRefresh: exposeRefresh,
		log:           log.Named("http.auth"),
	}
}

// Login godoc
// POST /auth/login
// Body: { "username": "...", "password": "..." }
//
// Hesap yok, pasif veya şifre yanlış: hepsi aynı 401 "Invalid credentials".
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, pkg.ErrInvalidCredentials) {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondError(w, r, h.log, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)

	resp := models.LoginResponse{AccessToken: result.AccessToken, Role: result.Role}
	if h.exposeRefresh {
		resp.RefreshToken = result.RefreshToken
	}
	pkg.JSON(w, http.StatusOK, resp)
}

// Refresh godoc
// POST /auth/refresh
//
// Refresh token önce cookie'den, yoksa gövdeden ({"refreshToken": "..."}) okunur.
// Gövde opsiyoneldir; tarayıcı client'ları boş istek gönderir. Boş ya da
// okunamayan gövde token yok sayılır ve 401 döner.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		var req models.RefreshRequest
		if decodeLenientJSON(w, r, &req) {
			token = req.RefreshToken
		}
	}

	accessToken, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, pkg.ErrUnauthorized):
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Refresh token required")
		case errors.Is(err, pkg.ErrForbidden):
			pkg.ErrorWithMessage(w, http.StatusForbidden, "Invalid refresh token")
		default:
			respondError(w, r, h.log, err)
		}
		return
	}

	pkg.JSON(w, http.StatusOK, models.RefreshResponse{AccessToken: accessToken})
}

// Verify godoc
// GET /auth/verify
// Auth middleware gerektirir; claims context'tedir.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	pkg.JSON(w, http.StatusOK, models.VerifyResponse{User: claims})
}

// Logout godoc
// POST /auth/logout
//
// Server tarafında token kara listesi yoktur; cookie silinir, her zaman 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.newCookie("", -1))
	pkg.JSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// ChangePassword godoc
// POST /auth/change-password
// Auth middleware gerektirir.
//
// Body: { "currentPassword": "...", "newPassword": "..." }
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req models.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), claims.AccountID, &req); err != nil {
		if errors.Is(err, pkg.ErrInvalidCredentials) {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Incorrect current password")
			return
		}
		respondError(w, r, h.log, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.MessageResponse{Message: "Password changed successfully"})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, h.newCookie(token, int(h.cookie.MaxAge/time.Second)))
}

// newCookie, refresh cookie'yi kurar. maxAge < 0 → cookie'yi siler (Max-Age=0 header'ı).
func (h *AuthHandler) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

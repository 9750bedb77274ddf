// Package handlers: AdminHandler, hesap yönetimi endpoint'leri.
//
// Bu handler sadece admin rolündeki hesaplar tarafından erişilebilir;
// route'lar auth + RequireRole(admin) middleware'leri ile sarılır.
//
// Thin handler pattern: parse request → call service → return response.
// Business logic service katmanındadır.
package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/services"
)

// AdminHandler, /auth/admin/users endpoint'lerini yönetir.
type AdminHandler struct {
	accountService services.AccountService
	log            *zap.Logger
}

// NewAdminHandler, constructor.
func NewAdminHandler(accountService services.AccountService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{accountService: accountService, log: log.Named("http.admin")}
}

// List: GET /auth/admin/users
// Tüm hesapları ID sırasıyla döner. PasswordHash JSON'a hiç yazılmaz.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.List(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	pkg.JSON(w, http.StatusOK, accounts)
}

// Create: POST /auth/admin/users
// Şifre verilmezse üretilen geçici şifre yanıtta bir kez döner.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.accountService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, created)
}

// Update: PUT /auth/admin/users/{id}
// Sadece gönderilen alanlar değişir.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	pkg.JSON(w, http.StatusOK, account)
}

// ResetPassword: POST /auth/admin/users/{id}/reset-password
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	tempPassword, err := h.accountService.ResetPassword(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.ResetPasswordResponse{
		Message:      "Password reset successfully",
		TempPassword: tempPassword,
	})
}

// Delete: DELETE /auth/admin/users/{id}
// Admin kendi hesabını silemez (400).
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	if err := h.accountService.Delete(r.Context(), claims.AccountID, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.MessageResponse{Message: "User deleted successfully"})
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

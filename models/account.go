// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model, veritabanındaki bir tablonun Go karşılığıdır ve aynı zamanda
// API'den gelen/giden verilerin şeklini belirler. `json:"..."` tag'leri
// field'ların JSON'a nasıl serialize edileceğini söyler.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Role, hesabın yetki seviyesi. Downstream tüm yetkilendirme kararları bu
// değere dayanır.
type Role string

// Go'da enum yoktur, typed constant'lar kullanılır.
const (
	RoleUser   Role = "user"
	RoleDevOps Role = "devops"
	RoleAdmin  Role = "admin"
)

// Valid, rolün bilinen değerlerden biri olup olmadığını döner.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDevOps, RoleAdmin:
		return true
	}
	return false
}

// MinPasswordLength, kullanıcı tarafından seçilen şifrelerin alt sınırı.
// Üretilen geçici şifreler de bu uzunluktadır.
const MinPasswordLength = 8

// Account, Credential Store'daki bir hesabı temsil eder (users tablosu).
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // json:"-" → API response'a ASLA dahil edilmez
	Role         Role      `json:"role"`
	Email        *string   `json:"email"` // *string = nullable
	FullName     *string   `json:"full_name"`
	Phone        *string   `json:"phone"`
	Designation  *string   `json:"designation"`
	Department   *string   `json:"department"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest, giriş isteği.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

// LoginResponse, başarılı girişte dönen gövde.
// RefreshToken sadece AUTH_EXPOSE_REFRESH_TOKEN açıkken doldurulur;
// tarayıcı client'ları token'ı HttpOnly cookie'den alır.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Role         Role   `json:"role"`
}

// RefreshRequest, cookie taşıyamayan client'lar için gövde fallback'i.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse, refresh sonrası yeni access token.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ChangePasswordRequest, şifre değiştirme isteği.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate, ChangePasswordRequest'in geçerli olup olmadığını kontrol eder.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" || r.NewPassword == "" {
		return fmt.Errorf("current and new password are required")
	}
	if utf8.RuneCountInString(r.NewPassword) < MinPasswordLength {
		return fmt.Errorf("new password must be at least %d characters", MinPasswordLength)
	}
	if r.NewPassword == r.CurrentPassword {
		return fmt.Errorf("new password must differ from the current password")
	}
	return nil
}

// CreateAccountRequest, admin'in yeni hesap açma isteği.
// Password boşsa service 8 karakterlik geçici bir şifre üretir.
type CreateAccountRequest struct {
	Email       string  `json:"email"`
	Role        Role    `json:"role"`
	Password    string  `json:"password"`
	FullName    *string `json:"full_name"`
	Phone       *string `json:"phone"`
	Designation *string `json:"designation"`
	Department  *string `json:"department"`
}

// Validate, CreateAccountRequest'i doğrular ve email'i normalize eder.
func (r *CreateAccountRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Role == "" {
		return fmt.Errorf("email and role are required")
	}
	if UsernameFromEmail(r.Email) == "" {
		return fmt.Errorf("invalid email address")
	}
	if !r.Role.Valid() {
		return fmt.Errorf("role must be one of user, devops, admin")
	}
	if r.Password != "" && utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UsernameFromEmail, email'in "@" öncesini username olarak döner.
// Geçersiz adreste (tek "@" yok, local-part veya domain boş) "" döner.
func UsernameFromEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	if utf8.RuneCountInString(local) > 50 || strings.ContainsAny(local, " \t") {
		return ""
	}
	return local
}

// CreateAccountResponse, oluşturulan hesap. TempPassword sadece şifre
// üretildiyse ve sadece bu yanıtta bir kez döner.
type CreateAccountResponse struct {
	Account
	TempPassword string `json:"tempPassword,omitempty"`
}

// UpdateAccountRequest, kısmi güncelleme. nil field → mevcut değer korunur.
type UpdateAccountRequest struct {
	Role        *Role   `json:"role"`
	FullName    *string `json:"full_name"`
	Phone       *string `json:"phone"`
	Designation *string `json:"designation"`
	Department  *string `json:"department"`
	IsActive    *bool   `json:"is_active"`
}

// Validate, UpdateAccountRequest'i doğrular.
func (r *UpdateAccountRequest) Validate() error {
	if r.Role != nil && !r.Role.Valid() {
		return fmt.Errorf("role must be one of user, devops, admin")
	}
	return nil
}

// ResetPasswordResponse, admin şifre sıfırlama yanıtı.
type ResetPasswordResponse struct {
	Message      string `json:"message"`
	TempPassword string `json:"tempPassword"`
}

// MessageResponse, sadece bilgi mesajı taşıyan yanıt.
type MessageResponse struct {
	Message string `json:"message"`
}

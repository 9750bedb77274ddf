package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims, access token payload'ı. Kısa ömürlü (15 dk); server tarafında
// saklanmaz, geçerliliği imza + expiry ile belirlenir.
//
// AccountID JSON'da "id" olarak yazılır; RegisteredClaims.ID ise "jti"dir,
// çakışmaz.
type AccessClaims struct {
	AccountID int64  `json:"id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims, refresh token payload'ı. Sadece hesap ID'si taşır;
// rol her refresh'te Credential Store'dan yeniden okunur.
type RefreshClaims struct {
	AccountID int64 `json:"id"`
	jwt.RegisteredClaims
}

// VerifyResponse, GET /auth/verify yanıtı: {"user": claims}.
type VerifyResponse struct {
	User *AccessClaims `json:"user"`
}

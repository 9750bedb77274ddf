package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// internalErrorMessage, 5xx yanıtlarında client'a giden sabit mesaj.
// Storage detayları (SQL hataları vb.) asla response'a yazılmaz.
const internalErrorMessage = "Internal Server Error"

// ErrorResponse, tüm hata yanıtlarının gövdesi.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON, başarılı bir yanıt gönderir. data olduğu gibi encode edilir;
// endpoint'lerin response şeması zarfsızdır ({accessToken, role} gibi).
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// Error, hata yanıtı gönderir.
// Domain error'ları otomatik olarak uygun HTTP status code'a çevrilir.
// 500'lerde error metni yerine sabit mesaj döner; loglamak caller'ın işidir.
func Error(w http.ResponseWriter, err error) {
	status := StatusOf(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = internalErrorMessage
	}

	ErrorWithMessage(w, status, message)
}

// ErrorWithMessage, özel mesajlı hata yanıtı gönderir.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		http.Error(w, "failed to encode error response", http.StatusInternalServerError)
	}
}

// StatusOf, domain error'ları HTTP status code'larına eşler.
// errors.Is() wrap edilmiş error'ları da yakalar.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// InvalidTokenChallenge, geçersiz/süresi dolmuş access token yanıtlarına eklenen
// WWW-Authenticate değeri (RFC 6750). Client bu işaretle 403'ü rol reddinden
// ayırır ve token yeniler.
const InvalidTokenChallenge = `Bearer error="invalid_token"`

// IsInvalidTokenChallenge, yanıt header'ı access token'ın reddedildiğini
// söylüyorsa true döner.
func IsInvalidTokenChallenge(h http.Header) bool {
	return strings.Contains(h.Get("WWW-Authenticate"), `error="invalid_token"`)
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/akinalp/opsportal/pkg"
)

var (
	// ErrNoSession, giriş yapılmamış ya da oturum kapanmışken dönen hata.
	ErrNoSession = errors.New("no active session")
	// ErrSessionExpired, "keep session" backstop süresinden sonra geldiğinde döner.
	ErrSessionExpired = errors.New("session expired")
)

// APIError, sunucunun döndüğü hata yanıtı. errors.Is ile pkg sentinel'lerine
// eşlenir: errors.Is(err, pkg.ErrRateLimited) gibi.
type APIError struct {
	Status  int
	Message string
	// RetryAfter, 429 yanıtındaki Retry-After header'ı.
	RetryAfter time.Duration

	sentinel error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.sentinel
}

// sentinelFor, HTTP status'u pkg sentinel'ine çevirir (pkg.StatusOf'un tersi).
func sentinelFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return pkg.ErrBadRequest
	case http.StatusUnauthorized:
		return pkg.ErrUnauthorized
	case http.StatusForbidden:
		return pkg.ErrForbidden
	case http.StatusNotFound:
		return pkg.ErrNotFound
	case http.StatusConflict:
		return pkg.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return pkg.ErrRateLimited
	default:
		return pkg.ErrInternal
	}
}

// errorFromResponse, 2xx olmayan yanıtı APIError'a çevirir ve gövdeyi kapatır.
func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()

	var body pkg.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	apiErr := &APIError{
		Status:   resp.StatusCode,
		Message:  body.Error,
		sentinel: sentinelFor(resp.StatusCode),
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Service katmanı bu sentinel error'ları fmt.Errorf("%w: ...") ile sararak döner,
// handler katmanı errors.Is() ile yakalayıp HTTP status code'una çevirir:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
package pkg

import "errors"

// Domain-level error'lar.
var (
	// ErrInvalidCredentials, yanlış kullanıcı adı veya şifre. Kullanıcı adının var olup
	// olmadığı bu error'dan anlaşılamaz (enumeration koruması).
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized, token hiç gönderilmemiş (kimlik yok).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden, token geçersiz/süresi dolmuş veya rol yetersiz.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidToken, imza ya da süre kontrolünden geçemeyen token. ErrForbidden'ı sarar.
	ErrInvalidToken  = errorWrap(ErrForbidden, "invalid token")
	ErrRateLimited   = errors.New("rate limited")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)

// wrappedError, bir sentinel'i başka bir sentinel altında gruplamak için kullanılır.
// errors.Is(ErrInvalidToken, ErrForbidden) == true.
type wrappedError struct {
	parent error
	msg    string
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.parent }

func errorWrap(parent error, msg string) error {
	return &wrappedError{parent: parent, msg: msg}
}

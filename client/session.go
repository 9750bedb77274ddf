// Package client, Ops Portal API'sinin Go istemcisidir.
//
// Tarayıcı tarafındaki oturum davranışının aynısını uygular:
//   - Session: giriş yapmış hesabın anlık görüntüsü (access token bellekte)
//   - Monitor: idle → uyarı → zorunlu çıkış state machine'i
//   - Transport: token reddinde (401 ya da invalid_token 403) tek seferlik refresh + retry yapan http.RoundTripper
//   - EventListener: hesap olaylarını WebSocket'ten dinler
//
// Refresh token ASLA Session'a kopyalanmaz; sadece cookie jar'da yaşar.
package client

import (
	"sync"

	"github.com/akinalp/opsportal/models"
)

// IdleState, oturumun idle durumu.
type IdleState string

const (
	// StateActive: uyarı yok, idle sayacı çalışıyor.
	StateActive IdleState = "ACTIVE"
	// StateWarning: uyarı gösteriliyor, geri sayım çalışıyor.
	StateWarning IdleState = "WARNING"
	// StateExpired: oturum kapandı.
	StateExpired IdleState = "EXPIRED"
)

// Session, giriş yapmış hesabın client tarafındaki görüntüsü.
// Client.Session() kopya döner; alanları değiştirmek client'ı etkilemez.
type Session struct {
	Username    string
	Role        models.Role
	AccessToken string
	State       IdleState
	// Remaining, WARNING'de çıkışa kalan saniye. Diğer state'lerde 0.
	Remaining int
}

// sessionStore, aktif oturumu tutar. Clear idempotent'tir: boş store'u
// temizlemek no-op'tur.
type sessionStore struct {
	mu      sync.RWMutex
	current *Session
	// gen her Set'te artar; eski oturuma ait geç gelen callback'ler
	// yeni oturumu etkilemesin diye karşılaştırılır.
	gen uint64
}

func (s *sessionStore) set(sess Session) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.current = &sess
	return s.gen
}

func (s *sessionStore) get() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *sessionStore) accessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// update, oturum hâlâ gen'e aitse fn'i uygular.
func (s *sessionStore) update(gen uint64, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.gen != gen {
		return false
	}
	fn(s.current)
	return true
}

// clear, oturum gen'e aitse (gen == 0 → hangisi olursa) siler.
// Bir şey silindiyse true döner.
func (s *sessionStore) clear(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || (gen != 0 && s.gen != gen) {
		return false
	}
	s.current = nil
	return true
}

func (s *sessionStore) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return s.gen
}

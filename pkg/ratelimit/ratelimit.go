// Package ratelimit: brute-force saldırılarına karşı IP bazlı login rate limiting.
//
// Algoritma: sliding log. Her IP için pencere içindeki kabul edilmiş denemelerin
// zaman damgaları tutulur. Pencere içinde limit kadar deneme varsa yeni istek
// reddedilir ve kaydedilmez; en eski deneme pencereden çıkınca tekrar izin verilir.
//
// İki backend vardır:
//   - MemoryLimiter: tek instance deploy, sync.Mutex ile korunan map
//   - RedisLimiter:  çoklu instance, sorted set + Lua script (atomik check-and-record)
//
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency).
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Decision, tek bir Allow çağrısının sonucu.
type Decision struct {
	Allowed bool
	// RetryAfter, reddedilen istekte en eski denemenin pencereden çıkmasına kalan süre.
	RetryAfter time.Duration
	// Remaining, kabul edilen istekten sonra pencerede kalan hak.
	Remaining int
}

// Limiter, login denemelerini anahtar (IP) bazında sınırlar.
// Allow kabul edilen denemeyi kaydeder; başarılı login de sayılır ve sayaç
// sıfırlanmaz.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// ClientIP, request'in kaynak IP'sini döner.
//
// Proxy header'ları (X-Forwarded-For, X-Real-IP) burada okunmaz: TRUST_PROXY
// açıkken chi'nin RealIP middleware'i RemoteAddr'ı zaten gerçek client IP'siyle
// değiştirir. Kapalıyken header'lara güvenmek limiti atlatmaya izin verirdi.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RetryAfterSeconds, Retry-After header'ı için süreyi yukarı yuvarlar (min 1).
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// cleanupInterval, boş/süresi dolmuş anahtarların silinme periyodu.
const cleanupInterval = time.Minute

// MemoryLimiter, in-memory sliding log limiter.
//
// Kullanım:
//
//	limiter := NewMemoryLimiter(10, 15*time.Minute, clock.New())
//	defer limiter.Stop()
//	d, _ := limiter.Allow(ctx, ip)
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	clock  clock.Clock

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter, limiter oluşturur ve arka plan temizleme goroutine'ini başlatır.
// Temizleme olmadan tek deneme yapıp bir daha gelmeyen IP'ler map'te sonsuza
// kadar kalırdı.
func NewMemoryLimiter(limit int, window time.Duration, clk clock.Clock) *MemoryLimiter {
	l := &MemoryLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		clock:  clk,
		stop:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow, anahtar için yeni bir denemeye izin verilip verilmediğini döner.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := prune(l.hits[key], now.Add(-l.window))

	if len(hits) >= l.limit {
		l.hits[key] = hits
		return Decision{RetryAfter: hits[0].Add(l.window).Sub(now)}, nil
	}

	hits = append(hits, now)
	l.hits[key] = hits
	return Decision{Allowed: true, Remaining: l.limit - len(hits)}, nil
}

// Stop, temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := l.clock.Ticker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup, penceresi tamamen boşalmış anahtarları siler.
func (l *MemoryLimiter) cleanup() {
	cutoff := l.clock.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, hits := range l.hits {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = hits
		}
	}
}

// prune, cutoff anında veya öncesinde kalan zaman damgalarını atar.
// hits kronolojik sıradadır.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

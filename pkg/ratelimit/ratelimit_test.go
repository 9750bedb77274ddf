package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	goredis "github.com/redis/go-redis/v9"
)

const (
	testLimit  = 10
	testWindow = 15 * time.Minute
)

// limiterFactory, aynı davranış testlerini iki backend üzerinde koşturur.
type limiterFactory func(t *testing.T, clk *clock.Mock) Limiter

func memoryFactory(t *testing.T, clk *clock.Mock) Limiter {
	l := NewMemoryLimiter(testLimit, testWindow, clk)
	t.Cleanup(l.Stop)
	return l
}

func redisFactory(t *testing.T, clk *clock.Mock) Limiter {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, "ratelimit:login:", testLimit, testWindow, clk)
}

func newMockClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return clk
}

func forEachBackend(t *testing.T, fn func(t *testing.T, l Limiter, clk *clock.Mock)) {
	backends := map[string]limiterFactory{
		"memory": memoryFactory,
		"redis":  redisFactory,
	}
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			clk := newMockClock()
			fn(t, factory(t, clk), clk)
		})
	}
}

func TestEleventhAttemptIsRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l Limiter, clk *clock.Mock) {
		ctx := context.Background()

		for i := range testLimit {
			d, err := l.Allow(ctx, "10.0.0.1")
			if err != nil {
				t.Fatalf("attempt %d: %v", i+1, err)
			}
			if !d.Allowed {
				t.Fatalf("attempt %d should be allowed", i+1)
			}
			if d.Remaining != testLimit-i-1 {
				t.Fatalf("attempt %d: remaining = %d, want %d", i+1, d.Remaining, testLimit-i-1)
			}
			clk.Add(time.Second)
		}

		d, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("11th attempt: %v", err)
		}
		if d.Allowed {
			t.Fatalf("11th attempt within the window must be rejected")
		}
		// İlk deneme t=0'da yapıldı, şimdi t=10s → 14m50s kaldı.
		if d.RetryAfter != testWindow-10*time.Second {
			t.Fatalf("retry after = %s, want %s", d.RetryAfter, testWindow-10*time.Second)
		}
	})
}

func TestKeysAreIndependent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l Limiter, clk *clock.Mock) {
		ctx := context.Background()
		for range testLimit {
			if _, err := l.Allow(ctx, "10.0.0.1"); err != nil {
				t.Fatalf("allow: %v", err)
			}
		}

		d, err := l.Allow(ctx, "10.0.0.2")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("another IP must not be affected")
		}
	})
}

func TestWindowSlides(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l Limiter, clk *clock.Mock) {
		ctx := context.Background()

		// 5 deneme t=0'da, 5 deneme t=10m'de.
		for range 5 {
			l.Allow(ctx, "ip")
		}
		clk.Add(10 * time.Minute)
		for range 5 {
			l.Allow(ctx, "ip")
		}

		if d, _ := l.Allow(ctx, "ip"); d.Allowed {
			t.Fatalf("window is full, attempt must be rejected")
		}

		// t=15m: ilk 5 deneme pencereden çıkar, sonraki 5 hâlâ içeride.
		clk.Add(5 * time.Minute)
		for i := range 5 {
			d, err := l.Allow(ctx, "ip")
			if err != nil {
				t.Fatalf("allow: %v", err)
			}
			if !d.Allowed {
				t.Fatalf("attempt %d should be allowed after the oldest entries expired", i+1)
			}
		}
		if d, _ := l.Allow(ctx, "ip"); d.Allowed {
			t.Fatalf("window refilled, attempt must be rejected")
		}
	})
}

func TestRejectedAttemptsAreNotRecorded(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l Limiter, clk *clock.Mock) {
		ctx := context.Background()
		for range testLimit {
			l.Allow(ctx, "ip")
		}
		// Reddedilen denemeler pencereyi uzatmamalı.
		for range 20 {
			clk.Add(time.Minute)
			l.Allow(ctx, "ip")
		}
		// t=20m: ilk 10 deneme (t=0) çoktan düştü.
		d, err := l.Allow(ctx, "ip")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("rejected attempts must not keep the key blocked")
		}
	})
}

func TestMemoryCleanupDropsIdleKeys(t *testing.T) {
	clk := newMockClock()
	l := NewMemoryLimiter(testLimit, testWindow, clk)
	defer l.Stop()

	l.Allow(context.Background(), "ip")
	clk.Add(testWindow + time.Second)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.hits["ip"]; ok {
		t.Fatalf("idle key should have been removed")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")

	if got := ClientIP(r); got != "192.0.2.10" {
		t.Fatalf("ClientIP = %q, want RemoteAddr host", got)
	}

	// chi RealIP RemoteAddr'ı port olmadan set eder.
	r.RemoteAddr = "203.0.113.9"
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Fatalf("ClientIP = %q", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       1,
		500 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		15 * time.Minute:        900,
	}
	for d, want := range cases {
		if got := RetryAfterSeconds(d); got != want {
			t.Errorf("RetryAfterSeconds(%s) = %d, want %d", d, got, want)
		}
	}
}

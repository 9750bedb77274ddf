package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/pkg/ratelimit"
)

// LoginRateLimit, login endpoint'ini IP bazlı brute-force koruması ile sarar.
//
// Kontrol kimlik doğrulamadan ÖNCE yapılır: limit aşılmışsa şifre hiç
// karşılaştırılmaz. Kabul edilen her deneme (başarılı olsa da) sayılır.
type LoginRateLimit struct {
	limiter ratelimit.Limiter
	window  time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewLoginRateLimit, constructor. window sadece hata mesajı için kullanılır;
// asıl pencere limiter'ın kendisindedir.
func NewLoginRateLimit(limiter ratelimit.Limiter, window time.Duration, m *metrics.Metrics, log *zap.Logger) *LoginRateLimit {
	return &LoginRateLimit{
		limiter: limiter,
		window:  window,
		metrics: m,
		log:     log.Named("ratelimit"),
	}
}

// Wrap, limit aşıldığında 429 + Retry-After döner, aksi halde next'i çağırır.
//
// Limiter backend'i (Redis) hata verirse istek geçirilir ve uyarı loglanır:
// Redis kesintisi tüm girişleri kilitlemez.
func (l *LoginRateLimit) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ratelimit.ClientIP(r)

		decision, err := l.limiter.Allow(r.Context(), ip)
		if err != nil {
			l.log.Warn("login limiter unavailable, allowing request", zap.String("ip", ip), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if !decision.Allowed {
			l.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeRateLimited).Inc()
			l.log.Info("login rate limited", zap.String("ip", ip), zap.Duration("retry_after", decision.RetryAfter))

			w.Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(decision.RetryAfter)))
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests, l.message())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimit) message() string {
	return fmt.Sprintf("Too many login attempts from this IP, please try again after %d minutes",
		int(l.window/time.Minute))
}

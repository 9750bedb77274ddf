// Package main: Service katmanı başlatma.
//
// initServices, service implementasyonlarını oluşturur. Her service, ihtiyaç
// duyduğu repository interface'lerini ve diğer dependency'leri constructor
// injection ile alır.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/config"
	"github.com/akinalp/opsportal/database"
	"github.com/akinalp/opsportal/pkg/crypto"
	"github.com/akinalp/opsportal/pkg/email"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/pkg/ratelimit"
	"github.com/akinalp/opsportal/services"
	"github.com/akinalp/opsportal/ws"
)

// loginLimiterPrefix, Redis'teki login sayaç anahtarlarının ön eki.
const loginLimiterPrefix = "opsportal:ratelimit:login:"

// Services, service instance'larını tutan container struct.
type Services struct {
	Tokens   services.TokenService
	Auth     services.AuthService
	Accounts services.AccountService
	Hasher   *crypto.Hasher
}

// initServices, service'leri oluşturur.
func initServices(
	db *database.DB,
	repos *Repositories,
	hub ws.EventPublisher,
	notifier email.Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
	clk clock.Clock,
	log *zap.Logger,
) *Services {
	hasher := crypto.NewHasher(cfg.JWT.BcryptCost)

	tokens := services.NewTokenService(services.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	}, clk)

	return &Services{
		Tokens:   tokens,
		Auth:     services.NewAuthService(repos.Account, tokens, hasher, m, log),
		Accounts: services.NewAccountService(db, repos.Account, hasher, hub, notifier, m, log),
		Hasher:   hasher,
	}
}

// initLoginLimiter, REDIS_URL set ise Redis, değilse in-memory limiter döner.
// Dönen stop fonksiyonu shutdown'da çağrılır.
func initLoginLimiter(ctx context.Context, cfg *config.Config, clk clock.Clock, log *zap.Logger) (ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit

	if rl.RedisURL == "" {
		limiter := ratelimit.NewMemoryLimiter(rl.LoginAttempts, rl.LoginWindow, clk)
		log.Info("login rate limiter: in-memory", zap.Int("limit", rl.LoginAttempts), zap.Duration("window", rl.LoginWindow))
		return limiter, limiter.Stop, nil
	}

	opts, err := goredis.ParseURL(rl.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("login rate limiter: redis", zap.String("addr", opts.Addr),
		zap.Int("limit", rl.LoginAttempts), zap.Duration("window", rl.LoginWindow))

	limiter := ratelimit.NewRedisLimiter(client, loginLimiterPrefix, rl.LoginAttempts, rl.LoginWindow, clk)
	return limiter, func() { client.Close() }, nil
}

// initNotifier, Resend ayarları eksiksizse email gönderen, değilse hiçbir şey
// yapmayan Notifier döner.
func initNotifier(cfg *config.Config, log *zap.Logger) email.Notifier {
	if !cfg.Email.EmailEnabled() {
		log.Info("account notices disabled (RESEND_API_KEY, RESEND_FROM or APP_URL not set)")
		return email.NewNoopNotifier()
	}
	return email.NewResendNotifier(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
}

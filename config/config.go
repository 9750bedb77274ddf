// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı main.go'da bir kez oluşturulur ve ihtiyaç duyan katmanlara
// constructor ile verilir; process-wide global değişken yoktur.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Ortam isimleri.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Development placeholder secret'ları. Sadece APP_ENV=development iken
// varsayılan olarak kullanılır; production'da bu değerler reddedilir.
const (
	devAccessSecret  = "dev_secret_key_change_in_prod"
	devRefreshSecret = "dev_refresh_key_change_in_prod"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct; her struct tek bir concern'ü temsil eder.
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Cookie    CookieConfig
	CORS      CORSConfig
	Email     EmailConfig

	// SeedDefaultAccounts, boş veritabanına demo hesaplarını ekler.
	// nil → ortamdan türetilir (development'ta açık, production'da kapalı).
	SeedDefaultAccounts *bool `env:"SEED_DEFAULT_ACCOUNTS"`
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"3000"`
	// TrustProxy: true ise X-Forwarded-For / X-Real-IP client IP olarak kabul edilir.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
}

// DatabaseConfig, Credential Store bağlantı ayarları.
// Driver "sqlite" ise Path, "postgres" ise Host/Port/User/Password/Name kullanılır.
type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	Path     string `env:"DATABASE_PATH" envDefault:"./data/auth.db"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"auth_db"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// JWTConfig, token ayarları. Access ve refresh token'lar ayrı secret ile imzalanır;
// biri sızarsa diğer türden token üretilemez.
type JWTConfig struct {
	AccessSecret  string        `env:"JWT_SECRET"`
	RefreshSecret string        `env:"REFRESH_SECRET"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"ops-portal-auth"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"12"`
	// ExposeRefreshToken: true ise login yanıt gövdesine refresh token da yazılır
	// (tarayıcı dışı client'lar için). Cookie her durumda set edilir.
	ExposeRefreshToken bool `env:"AUTH_EXPOSE_REFRESH_TOKEN" envDefault:"false"`
}

// RateLimitConfig, login brute-force koruması.
type RateLimitConfig struct {
	LoginAttempts int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginWindow   time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`
	// RedisURL boş değilse sayaçlar Redis'te tutulur (çoklu instance deploy).
	RedisURL string `env:"REDIS_URL"`
}

// CookieConfig, refresh token cookie ayarları.
type CookieConfig struct {
	// Secure nil → production'da true, development'ta false.
	Secure *bool  `env:"COOKIE_SECURE"`
	Domain string `env:"COOKIE_DOMAIN"`
}

// CORSConfig, tarayıcı origin izinleri.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

// EmailConfig, Resend üzerinden bilgilendirme email'leri.
// Üçü de set edilmemişse email gönderimi devre dışıdır.
type EmailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromEmail    string `env:"RESEND_FROM"`
	AppURL       string `env:"APP_URL"`
}

// Load, .env dosyasını (varsa) yükler, environment'tan Config oluşturur ve doğrular.
func Load() (*Config, error) {
	// .env yoksa hata vermez; production'da gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults, ortama bağlı varsayılanları doldurur.
func (c *Config) applyDefaults() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("invalid APP_ENV %q: must be %q or %q", c.Env, EnvDevelopment, EnvProduction)
	}

	if c.IsDevelopment() {
		if c.JWT.AccessSecret == "" {
			c.JWT.AccessSecret = devAccessSecret
		}
		if c.JWT.RefreshSecret == "" {
			c.JWT.RefreshSecret = devRefreshSecret
		}
	}

	if c.Cookie.Secure == nil {
		secure := !c.IsDevelopment()
		c.Cookie.Secure = &secure
	}
	if c.SeedDefaultAccounts == nil {
		seed := c.IsDevelopment()
		c.SeedDefaultAccounts = &seed
	}
	return nil
}

// Validate, konfigürasyonun tutarlı olup olmadığını kontrol eder.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.JWT.RefreshSecret == "" {
		return errors.New("REFRESH_SECRET environment variable is required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("JWT_SECRET and REFRESH_SECRET must differ")
	}
	if !c.IsDevelopment() &&
		(c.JWT.AccessSecret == devAccessSecret || c.JWT.RefreshSecret == devRefreshSecret) {
		return errors.New("development placeholder secrets are not allowed in production")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.RateLimit.LoginAttempts <= 0 || c.RateLimit.LoginWindow <= 0 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.User == "" || c.Database.Name == "" {
			return errors.New("DB_USER and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", c.Database.Driver)
	}

	return nil
}

// IsDevelopment, yerel/geliştirme ortamında mıyız?
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:3000").
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DSN, seçili driver için database/sql bağlantı dizesini döner.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:     "/" + c.Name,
			RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
		}
		return u.String()
	}
	return c.Path
}

// EmailEnabled, Resend ayarlarının eksiksiz olup olmadığını döner.
func (c *EmailConfig) EmailEnabled() bool {
	return c.ResendAPIKey != "" && c.FromEmail != "" && c.AppURL != ""
}

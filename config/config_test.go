package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REFRESH_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.JWT.AccessSecret != devAccessSecret || cfg.JWT.RefreshSecret != devRefreshSecret {
		t.Fatalf("expected development placeholder secrets")
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token lifetimes: %s / %s", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.RateLimit.LoginAttempts != 10 || cfg.RateLimit.LoginWindow != 15*time.Minute {
		t.Fatalf("unexpected limiter defaults: %d / %s", cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	}
	if *cfg.Cookie.Secure {
		t.Fatalf("cookie should not be Secure in development by default")
	}
	if !*cfg.SeedDefaultAccounts {
		t.Fatalf("development should seed default accounts")
	}
	if cfg.Server.Addr() != "0.0.0.0:3000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr())
	}
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REFRESH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing production secrets")
	}
}

func TestLoadProductionRejectsPlaceholders(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", devAccessSecret)
	t.Setenv("REFRESH_SECRET", "a-real-refresh-secret")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "placeholder") {
		t.Fatalf("expected placeholder rejection, got %v", err)
	}
}

func TestLoadRejectsEqualSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "same-secret")
	t.Setenv("REFRESH_SECRET", "same-secret")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for identical secrets")
	}
}

func TestLoadProductionDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("REFRESH_SECRET", "refresh-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !*cfg.Cookie.Secure {
		t.Fatalf("cookie must be Secure in production")
	}
	if *cfg.SeedDefaultAccounts {
		t.Fatalf("production must not seed demo accounts by default")
	}
}

func TestPostgresDSN(t *testing.T) {
	db := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "auth",
		Password: "p@ss",
		Name:     "auth_db",
		SSLMode:  "disable",
	}

	got := db.DSN()
	want := "postgres://auth:p%40ss@db:5432/auth_db?sslmode=disable"
	if got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}

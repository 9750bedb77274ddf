package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/config"
	"github.com/akinalp/opsportal/database"
	"github.com/akinalp/opsportal/middleware"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/services"
	"github.com/akinalp/opsportal/ws"
)

// App, birbirine bağlanmış uygulama: HTTP handler'ı ve kapatılması gereken
// kaynaklar. main.go ve uçtan uca testler aynı wire-up'ı kullanır.
type App struct {
	Handler  http.Handler
	Services *Services
	Hub      *ws.Hub

	db      *database.DB
	closers []func()
}

// newApp, Dependency Injection "wire-up":
//  1. Database + migration
//  2. Metrics registry
//  3. Repository'ler
//  4. WebSocket Hub
//  5. Notifier + login limiter
//  6. Service'ler (+ demo seed)
//  7. Handler'lar ve route'lar
//
// Global değişken YOK; her şey burada oluşturulup birbirine bağlanıyor.
func newApp(ctx context.Context, cfg *config.Config, clk clock.Clock, log *zap.Logger) (*App, error) {
	// ─── 1. Database ───
	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app := &App{db: db}

	// ─── 2. Metrics ───
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// ─── 3. Repository Layer ───
	repos := initRepositories(db)

	// ─── 4. WebSocket Hub ───
	app.Hub = ws.NewHub(log, m.WSConnections)
	go app.Hub.Run()
	app.closers = append(app.closers, app.Hub.Shutdown)

	// ─── 5. Notifier + limiter ───
	notifier := initNotifier(cfg, log)

	limiter, stopLimiter, err := initLoginLimiter(ctx, cfg, clk, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, stopLimiter)

	// ─── 6. Service Layer ───
	app.Services = initServices(db, repos, app.Hub, notifier, m, cfg, clk, log)

	if *cfg.SeedDefaultAccounts {
		if err := services.SeedDefaultAccounts(ctx, repos.Account, app.Services.Hasher, log); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to seed default accounts: %w", err)
		}
	}

	// ─── 7. Handlers + routes ───
	h := initHandlers(app.Services, app.Hub, cfg, log)
	loginLimit := middleware.NewLoginRateLimit(limiter, cfg.RateLimit.LoginWindow, m, log)
	app.Handler = initRoutes(h, app.Services.Auth, loginLimit, m, cfg, log)

	return app, nil
}

// Close, kaynakları oluşturulma sırasının tersine kapatır.
// Önce WebSocket bağlantıları kapanır, veritabanı en son.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

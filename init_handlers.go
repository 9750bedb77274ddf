// Package main: Handler katmanı başlatma.
//
// initHandlers, HTTP handler'larını oluşturur.
// Handler'lar "thin" dir; sadece HTTP parse + service call + response write.
package main

import (
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/config"
	"github.com/akinalp/opsportal/handlers"
	"github.com/akinalp/opsportal/ws"
)

// Handlers, handler instance'larını tutan container struct.
type Handlers struct {
	Auth  *handlers.AuthHandler
	Admin *handlers.AdminHandler
	WS    *ws.Handler
}

// initHandlers, handler'ları service'ler ve config ile oluşturur.
func initHandlers(svcs *Services, hub *ws.Hub, cfg *config.Config, log *zap.Logger) *Handlers {
	cookie := handlers.CookieSettings{
		Secure: *cfg.Cookie.Secure,
		Domain: cfg.Cookie.Domain,
		MaxAge: cfg.JWT.RefreshTTL,
	}

	return &Handlers{
		Auth:  handlers.NewAuthHandler(svcs.Auth, cookie, cfg.JWT.ExposeRefreshToken, log),
		Admin: handlers.NewAdminHandler(svcs.Accounts, log),
		WS:    ws.NewHandler(hub, svcs.Tokens, cfg.CORS.AllowedOrigins, log),
	}
}

// Package main, Ops Portal auth servisinin giriş noktasıdır.
//
// Bu dosyanın görevi:
//  1. Config'i yükle
//  2. Logger'ı kur
//  3. Uygulamayı wire-up et (bkz. app.go)
//  4. HTTP Server'ı başlat
//  5. Graceful shutdown
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/config"
	"github.com/akinalp/opsportal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "opsportal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─── 2. Logger ───
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("ops portal auth starting",
		zap.String("env", cfg.Env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("addr", cfg.Server.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── 3. Wire-up ───
	app, err := newApp(ctx, cfg, clock.New(), log)
	if err != nil {
		return err
	}
	defer app.Close()

	// ─── 4. HTTP Server ───
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	// ─── 5. Graceful Shutdown ───
	// Önce WebSocket bağlantıları kapanır; hijack edilmiş bağlantıları
	// srv.Shutdown beklemez. Sonra HTTP server mevcut istekleri 5sn bekler.
	log.Info("shutting down")
	app.Hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

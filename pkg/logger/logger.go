// Package logger, uygulama genelinde kullanılan zap logger'ını oluşturur.
//
// Her bileşen constructor'dan *zap.Logger alır ve kendi adıyla alt logger türetir:
//
//	log := base.Named("auth")
//	log.Info("login succeeded", zap.Int64("account_id", id))
//
// Şifre, hash ve token değerleri ASLA log'a yazılmaz.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New, verilen seviyede JSON formatında production logger döner.
// level: "debug", "info", "warn", "error".
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

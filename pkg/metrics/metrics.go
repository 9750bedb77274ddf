// Package metrics, auth akışlarının Prometheus sayaçlarını tanımlar.
//
// Global registry kullanılmaz; Metrics, main.go'da oluşturulan registry'ye
// kaydedilir ve service'lere constructor ile verilir. Testler kendi
// prometheus.NewRegistry()'lerini geçer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login sonuç etiketleri.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_credentials"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeForbidden   = "forbidden"
)

// Metrics, auth servisinin sayaçlarını tutar.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts  *prometheus.CounterVec
	TokenRefreshes *prometheus.CounterVec
	AdminActions   *prometheus.CounterVec
	WSConnections  prometheus.Gauge
}

// New, sayaçları oluşturur ve verilen registry'ye kaydeder.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Access token refresh exchanges by outcome.",
		}, []string{"outcome"}),
		AdminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "admin",
			Name:      "actions_total",
			Help:      "Administrative account operations by action.",
		}, []string{"action"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open account event stream connections.",
		}),
	}

	registry.MustRegister(m.LoginAttempts, m.TokenRefreshes, m.AdminActions, m.WSConnections)
	return m
}

// Handler, GET /metrics için exposition handler'ı döner.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package observability holds the Prometheus instruments of the host.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments. Each instance owns its
// registry so tests and multiple hosts never collide.
type Metrics struct {
	Registry *prometheus.Registry

	Announcements    *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
	TimerAlerts      *prometheus.CounterVec
	WSClients        prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Announcements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Announcement attempts by outcome.",
		}, []string{"outcome"}),
		SynthesisLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Latency of one speech synthesis call in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 3000, 5000, 8000, 15000, 30000},
		}),
		TimerAlerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_alerts_total",
			Help:      "Countdown alerts fired by signal.",
		}, []string{"signal"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket state subscribers.",
		}),
	}
}

func (m *Metrics) ObserveAnnouncement(outcome string) {
	m.Announcements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSynthesis(d time.Duration) {
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveAlert(signal string) {
	m.TimerAlerts.WithLabelValues(signal).Inc()
}

func (m *Metrics) ClientConnected()    { m.WSClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.WSClients.Dec() }

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

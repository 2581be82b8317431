// Package metrics exposes Prometheus counters for key refreshes, token
// verification and access decisions.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bouncer"

// Metrics owns its own registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	JWKSRefreshes       *prometheus.CounterVec
	JWKSRefreshDuration prometheus.Histogram
	Verifications       *prometheus.CounterVec
	Decisions           *prometheus.CounterVec
	KeysLoaded          prometheus.GaugeFunc
}

// New registers all collectors. keyCount backs the loaded keys gauge and may
// be nil.
func New(service string, keyCount func() int) *Metrics {
	labels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JWKSRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "jwks_refresh_total",
				Help:        "JWKS refresh attempts by outcome.",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		JWKSRefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "jwks_refresh_duration_seconds",
				Help:        "Time spent fetching the JWKS, retries included.",
				ConstLabels: labels,
				Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "token_verifications_total",
				Help:        "Presented access tokens by verification result.",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "access_decisions_total",
				Help:        "Guarded requests by outcome and HTTP status.",
				ConstLabels: labels,
			},
			[]string{"outcome", "status"},
		),
	}

	if keyCount == nil {
		keyCount = func() int { return 0 }
	}
	m.KeysLoaded = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "jwks_keys_loaded",
			Help:        "Signing keys currently cached.",
			ConstLabels: labels,
		},
		func() float64 { return float64(keyCount()) },
	)

	m.registry.MustRegister(
		m.JWKSRefreshes,
		m.JWKSRefreshDuration,
		m.Verifications,
		m.Decisions,
		m.KeysLoaded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRefresh matches jwtx.ProviderOptions.OnRefresh.
func (m *Metrics) ObserveRefresh(outcome string, took time.Duration) {
	m.JWKSRefreshes.WithLabelValues(outcome).Inc()
	if outcome != jwtx.RefreshThrottled {
		m.JWKSRefreshDuration.Observe(took.Seconds())
	}
}

// Record implements httpx.Recorder.
func (m *Metrics) Record(_ context.Context, ev httpx.DecisionEvent) {
	switch {
	case ev.VerifyErr != nil:
		m.Verifications.WithLabelValues(jwtx.Code(ev.VerifyErr)).Inc()
	case ev.Identity != nil:
		m.Verifications.WithLabelValues("ok").Inc()
	}
	m.Decisions.WithLabelValues(ev.Outcome(), strconv.Itoa(ev.Status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

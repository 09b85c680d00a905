// ABOUTME: Prometheus collectors for authentication and key cache outcomes
// ABOUTME: Registered on a dedicated registry exposed via promhttp when enabled

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthMetrics tracks authentication and cache activity.
//
// Metrics:
//   - hamco_auth_attempts_total: authentication outcomes by method
//   - hamco_tokens_issued_total: JWTs issued at login
//   - hamco_keycache_hits_total / misses_total / evictions_total
type AuthMetrics struct {
	registry *prometheus.Registry

	authAttempts *prometheus.CounterVec
	tokensIssued prometheus.Counter

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
}

// New creates and registers the hamco collectors on a fresh registry.
func New() *AuthMetrics {
	registry := prometheus.NewRegistry()

	m := &AuthMetrics{
		registry: registry,

		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hamco",
				Name:      "auth_attempts_total",
				Help:      "Authentication attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),

		tokensIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hamco",
				Name:      "tokens_issued_total",
				Help:      "Total number of JWTs issued",
			},
		),

		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hamco",
				Name:      "keycache_hits_total",
				Help:      "Total number of key cache hits",
			},
		),

		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hamco",
				Name:      "keycache_misses_total",
				Help:      "Total number of key cache misses",
			},
		),

		cacheEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hamco",
				Name:      "keycache_evictions_total",
				Help:      "Total number of key cache capacity evictions",
			},
		),
	}

	registry.MustRegister(
		m.authAttempts,
		m.tokensIssued,
		m.cacheHits,
		m.cacheMisses,
		m.cacheEvictions,
	)

	return m
}

// ObserveAuth implements auth.Observer.
func (m *AuthMetrics) ObserveAuth(method, outcome string) {
	if method == "" {
		method = "none"
	}
	m.authAttempts.WithLabelValues(method, outcome).Inc()
}

// TokenIssued records a successful login issuance.
func (m *AuthMetrics) TokenIssued() {
	m.tokensIssued.Inc()
}

// CacheHit implements keycache.Observer.
func (m *AuthMetrics) CacheHit() { m.cacheHits.Inc() }

// CacheMiss implements keycache.Observer.
func (m *AuthMetrics) CacheMiss() { m.cacheMisses.Inc() }

// CacheEviction implements keycache.Observer.
func (m *AuthMetrics) CacheEviction() { m.cacheEvictions.Inc() }

// Handler returns the scrape handler for the dedicated registry.
func (m *AuthMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

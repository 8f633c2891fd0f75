package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the HTTP layer reports into.
type Metrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	authDecisions *prometheus.CounterVec
	exchange      *prometheus.HistogramVec
	adminCache    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rentdash_http_requests_total", Help: "HTTP requests by code and method."},
			[]string{"code", "method"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentdash_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		authDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rentdash_auth_decisions_total", Help: "Authorization outcomes by middleware variant."},
			[]string{"variant", "outcome"},
		),
		exchange: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentdash_credential_exchange_seconds",
				Help:    "Latency of session exchanges with the credential store.",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"result"},
		),
		adminCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rentdash_admin_cache_lookups_total", Help: "Admin-role cache lookups."},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.requests, m.latency, m.authDecisions, m.exchange, m.adminCache)
	return m
}

// HTTP records request counts and latency.
func (m *Metrics) HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.requests.WithLabelValues(strconv.Itoa(c.Writer.Status()), c.Request.Method).Inc()
		m.latency.WithLabelValues(c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveAdminCache matches auth.WithObserver.
func (m *Metrics) ObserveAdminCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.adminCache.WithLabelValues(result).Inc()
}

func (m *Metrics) observeDecision(variant, outcome string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) observeExchange(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.exchange.WithLabelValues(result).Observe(d.Seconds())
}

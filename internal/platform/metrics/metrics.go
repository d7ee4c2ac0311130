package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway-level Prometheus metrics. Domain packages keep
// their own metrics structs next to their services.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers the gateway metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atrium_http_request_duration_seconds",
			Help:    "HTTP request latency by site and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"site", "method", "status"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_http_requests_total",
			Help: "HTTP requests by site and status class.",
		}, []string{"site", "method", "status"}),
	}
}

// Observe records one finished request.
func (m *Metrics) Observe(site, method, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(site, method, status).Observe(seconds)
	m.RequestsTotal.WithLabelValues(site, method, status).Inc()
}

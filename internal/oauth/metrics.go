package oauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts login flow outcomes per site and provider.
type Metrics struct {
	LoginsStarted   *prometheus.CounterVec
	LoginsSucceeded *prometheus.CounterVec
	LoginsFailed    *prometheus.CounterVec
	LoginsReplayed  *prometheus.CounterVec
}

// NewMetrics creates and registers the login metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		LoginsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_logins_started_total",
			Help: "Login redirects issued.",
		}, []string{"site", "provider"}),
		LoginsSucceeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_logins_succeeded_total",
			Help: "Callbacks that ended in a session.",
		}, []string{"site", "provider"}),
		LoginsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_logins_failed_total",
			Help: "Callbacks that failed, by reason.",
		}, []string{"site", "provider", "reason"}),
		LoginsReplayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_logins_replayed_total",
			Help: "Duplicate callbacks absorbed by the replay guard.",
		}, []string{"site", "provider"}),
	}
}

func (m *Metrics) started(site, provider string) {
	if m != nil {
		m.LoginsStarted.WithLabelValues(site, provider).Inc()
	}
}

func (m *Metrics) succeeded(site, provider string) {
	if m != nil {
		m.LoginsSucceeded.WithLabelValues(site, provider).Inc()
	}
}

func (m *Metrics) failed(site, provider, reason string) {
	if m != nil {
		m.LoginsFailed.WithLabelValues(site, provider, reason).Inc()
	}
}

func (m *Metrics) replayed(site, provider string) {
	if m != nil {
		m.LoginsReplayed.WithLabelValues(site, provider).Inc()
	}
}

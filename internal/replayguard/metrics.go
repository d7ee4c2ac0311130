package replayguard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts how callback duplicates resolve.
type Metrics struct {
	Primary         prometheus.Counter
	Piggybacked     prometheus.Counter
	PiggybackFailed prometheus.Counter
	WaitTimeouts    prometheus.Counter
}

// NewMetrics creates and registers the guard metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Primary: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_replayguard_primary_total",
			Help: "Callback requests that won the claim and ran the exchange.",
		}),
		Piggybacked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_replayguard_piggybacked_total",
			Help: "Duplicate callbacks resolved from the primary's outcome.",
		}),
		PiggybackFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_replayguard_piggyback_failed_total",
			Help: "Duplicate callbacks that observed a failed primary outcome.",
		}),
		WaitTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_replayguard_wait_timeouts_total",
			Help: "Duplicate callbacks whose wait budget ran out.",
		}),
	}
}

func (m *Metrics) recordPrimary() {
	if m != nil {
		m.Primary.Inc()
	}
}

func (m *Metrics) recordPiggyback() {
	if m != nil {
		m.Piggybacked.Inc()
	}
}

func (m *Metrics) recordPiggybackFailed() {
	if m != nil {
		m.PiggybackFailed.Inc()
	}
}

func (m *Metrics) recordTimeout() {
	if m != nil {
		m.WaitTimeouts.Inc()
	}
}

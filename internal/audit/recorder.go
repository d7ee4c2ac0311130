package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"atrium/pkg/requestcontext"
)

// Metrics counts audit throughput and drops.
type Metrics struct {
	Published prometheus.Counter
	Dropped   prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_audit_events_published_total",
			Help: "Audit events handed to the publisher.",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atrium_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full.",
		}),
	}
}

// Recorder accepts events from request handlers without ever blocking them.
// When the buffer is full the oldest queued event is dropped and counted;
// losing an audit row beats stalling a login.
type Recorder struct {
	inbox   chan Event
	logger  *slog.Logger
	metrics *Metrics
}

func NewRecorder(buffer int, logger *slog.Logger, metrics *Metrics) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		inbox:   make(chan Event, buffer),
		logger:  logger,
		metrics: metrics,
	}
}

// Record stamps missing metadata from the request context and enqueues the
// event. Never blocks.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}

	for {
		select {
		case r.inbox <- event:
			return
		default:
		}
		// Full: drop the oldest queued event to make room.
		select {
		case dropped := <-r.inbox:
			if r.metrics != nil {
				r.metrics.Dropped.Inc()
			}
			r.logger.Warn("audit buffer full, dropped event", "kind", dropped.Kind)
		default:
		}
	}
}

// Run drains the inbox into the publisher until ctx is canceled, then
// flushes whatever is still queued.
func (r *Recorder) Run(ctx context.Context, publisher Publisher) {
	for {
		select {
		case <-ctx.Done():
			r.flush(publisher)
			return
		case event := <-r.inbox:
			r.publish(ctx, publisher, event)
		}
	}
}

func (r *Recorder) flush(publisher Publisher) {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-r.inbox:
			r.publish(flushCtx, publisher, event)
		default:
			return
		}
	}
}

func (r *Recorder) publish(ctx context.Context, publisher Publisher, event Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "publish audit event failed",
			"kind", event.Kind,
			"error", err.Error(),
		)
		return
	}
	if r.metrics != nil {
		r.metrics.Published.Inc()
	}
}

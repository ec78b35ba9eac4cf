// Package observability provides Prometheus metrics and OpenTelemetry
// tracing instruments for the delivery pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the metric instruments for the delivery pipeline.
type Metrics struct {
	// EventsSentTotal counts sends that resolved at least one subscription.
	EventsSentTotal prometheus.Counter

	// DeliveriesTotal counts finished delivery sequences by final status
	// ("delivered" or "failed").
	DeliveriesTotal *prometheus.CounterVec

	// DeliveryDuration observes wall-clock seconds per delivery sequence,
	// backoff waits included.
	DeliveryDuration prometheus.Histogram

	// BreakerRejectionsTotal counts deliveries rejected by an open circuit.
	BreakerRejectionsTotal prometheus.Counter

	// BookkeepingErrorsTotal counts record or counter writes that failed
	// after a sequence finished.
	BookkeepingErrorsTotal prometheus.Counter
}

// NewMetrics creates the delivery metric instruments and registers them on
// the given registerer. Pass prometheus.DefaultRegisterer for standalone
// usage or a fresh Registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hookline_events_sent_total",
			Help: "Total number of events that fanned out to at least one webhook.",
		}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookline_deliveries_total",
			Help: "Total number of finished delivery sequences by status.",
		}, []string{"status"}),
		DeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hookline_delivery_duration_seconds",
			Help:    "Delivery sequence duration in seconds, including backoff waits.",
			Buckets: prometheus.DefBuckets,
		}),
		BreakerRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hookline_breaker_rejections_total",
			Help: "Total number of deliveries rejected by an open circuit breaker.",
		}),
		BookkeepingErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hookline_bookkeeping_errors_total",
			Help: "Total number of failed delivery record or counter writes.",
		}),
	}

	reg.MustRegister(
		m.EventsSentTotal,
		m.DeliveriesTotal,
		m.DeliveryDuration,
		m.BreakerRejectionsTotal,
		m.BookkeepingErrorsTotal,
	)

	return m
}

// RecordDelivery records a finished delivery sequence with its final status
// and duration.
func (m *Metrics) RecordDelivery(status string, durationSeconds float64) {
	m.DeliveriesTotal.WithLabelValues(status).Inc()
	m.DeliveryDuration.Observe(durationSeconds)
}

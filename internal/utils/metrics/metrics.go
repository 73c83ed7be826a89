package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Payment gateway metrics
	PaymentsTotal   *prometheus.CounterVec
	PaymentDuration *prometheus.HistogramVec

	// Session metrics
	SessionTransitionsTotal *prometheus.CounterVec
	RetriesTotal            prometheus.Counter
	RetriesExhaustedTotal   prometheus.Counter
	ActiveSessions          prometheus.Gauge

	// Ticket metrics
	TicketsIssuedTotal    prometheus.Counter
	TicketsValidatedTotal prometheus.Counter
	TicketsExpiredTotal   prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered on
// the given registerer. A nil registerer falls back to the default
// prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ticketing"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PaymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "requests_total",
				Help:      "Total number of payment gateway requests",
			},
			[]string{"method", "status"}, // status: success, failed
		),
		PaymentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "request_duration_seconds",
				Help:      "Payment gateway request duration in seconds",
				Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),

		SessionTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "transitions_total",
				Help:      "Total number of session state transitions",
			},
			[]string{"from", "to"},
		),
		RetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "payment_retries_total",
				Help:      "Total number of payment retries",
			},
		),
		RetriesExhaustedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "payment_retries_exhausted_total",
				Help:      "Total number of sessions reset after exhausting payment retries",
			},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "active_total",
				Help:      "Number of sessions currently in a non-idle state",
			},
		),

		TicketsIssuedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ticket",
				Name:      "issued_total",
				Help:      "Total number of tickets issued",
			},
		),
		TicketsValidatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ticket",
				Name:      "validated_total",
				Help:      "Total number of tickets validated",
			},
		),
		TicketsExpiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ticket",
				Name:      "expired_total",
				Help:      "Total number of tickets expired",
			},
		),
	}
}

// --- Convenience methods ---

// RecordPayment records a payment gateway request.
func (m *Metrics) RecordPayment(method, status string, duration time.Duration) {
	m.PaymentsTotal.WithLabelValues(method, status).Inc()
	m.PaymentDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTransition records a session state transition.
func (m *Metrics) RecordTransition(from, to string) {
	m.SessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

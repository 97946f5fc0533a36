// Package metrics defines the Prometheus collectors of the settlement services.
// Collectors live on their own registry so tests and binaries never share state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settlement"

// Close results
const (
	ResultClosed     = "closed"
	ResultIdempotent = "idempotent"
	ResultGated      = "gated"
	ResultError      = "error"
)

// Sale event outcomes
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	registry        *prometheus.Registry
	shiftClose      *prometheus.CounterVec
	closeDuration   prometheus.Histogram
	withheld        *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
}

// New registers every collector on registry. Passing nil creates a fresh registry
// that also exposes Go runtime and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		shiftClose: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shift_close_total",
			Help:      "Shift close attempts by result.",
		}, []string{"result"}),
		closeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shift_close_duration_seconds",
			Help:      "Time spent closing a business day.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		withheld: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_withheld_amount_total",
			Help:      "Sum of withholding entries appended to the ledger, in minor units.",
		}, []string{"type"}),
		eventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_events_processed_total",
			Help:      "Collaborator events consumed by outcome.",
		}, []string{"outcome"}),
	}
}

// ShiftClosed records one close attempt
func (m *Metrics) ShiftClosed(result string, elapsed time.Duration) {
	m.shiftClose.WithLabelValues(result).Inc()
	m.closeDuration.Observe(elapsed.Seconds())
}

// Withheld adds an appended withholding amount
func (m *Metrics) Withheld(entryType string, amount int64) {
	m.withheld.WithLabelValues(entryType).Add(float64(amount))
}

// EventProcessed counts one consumed collaborator event
func (m *Metrics) EventProcessed(outcome string) {
	m.eventsProcessed.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

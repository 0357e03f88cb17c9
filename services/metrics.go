package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters for the settlement engine. A nil
// *Metrics is valid and records nothing, so services never need to guard
// their instrumentation calls.
type Metrics struct {
	registry *prometheus.Registry

	intentsCreated  prometheus.Counter
	intentsFilled   prometheus.Counter
	intentsFailed   prometheus.Counter
	intentsRefunded prometheus.Counter
	fillsPerformed  prometheus.Counter
	doubleFills     prometheus.Counter
	dispatches      *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		intentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rozo_intents_created_total",
			Help: "Total number of intents created",
		}),
		intentsFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rozo_intents_filled_total",
			Help: "Total number of intents finalized as filled",
		}),
		intentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rozo_intents_failed_total",
			Help: "Total number of intents finalized as failed (hash mismatch or underpayment)",
		}),
		intentsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rozo_intents_refunded_total",
			Help: "Total number of intents refunded after deadline",
		}),
		fillsPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rozo_fills_total",
			Help: "Total number of destination-side fills performed",
		}),
		doubleFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rozo_double_fill_rejections_total",
			Help: "Total number of fills rejected by the double-fill guard",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rozo_messages_dispatched_total",
			Help: "Total number of cross-chain notifications dispatched per messenger",
		}, []string{"messenger_id"}),
	}

	registry.MustRegister(
		m.intentsCreated,
		m.intentsFilled,
		m.intentsFailed,
		m.intentsRefunded,
		m.fillsPerformed,
		m.doubleFills,
		m.dispatches,
	)
	return m
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncIntentsCreated records one created intent
func (m *Metrics) IncIntentsCreated() {
	if m != nil {
		m.intentsCreated.Inc()
	}
}

// IncIntentsFilled records one filled intent
func (m *Metrics) IncIntentsFilled() {
	if m != nil {
		m.intentsFilled.Inc()
	}
}

// IncIntentsFailed records one failed verification outcome
func (m *Metrics) IncIntentsFailed() {
	if m != nil {
		m.intentsFailed.Inc()
	}
}

// IncIntentsRefunded records one refunded intent
func (m *Metrics) IncIntentsRefunded() {
	if m != nil {
		m.intentsRefunded.Inc()
	}
}

// IncFillsPerformed records one destination-side fill
func (m *Metrics) IncFillsPerformed() {
	if m != nil {
		m.fillsPerformed.Inc()
	}
}

// IncDoubleFillRejections records one double-fill rejection
func (m *Metrics) IncDoubleFillRejections() {
	if m != nil {
		m.doubleFills.Inc()
	}
}

// IncDispatches records one outbound dispatch through a messenger
func (m *Metrics) IncDispatches(messengerID string) {
	if m != nil {
		m.dispatches.WithLabelValues(messengerID).Inc()
	}
}

// Package metrics defines the Prometheus collectors of the service.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "settlewise"

// Settle-up outcomes.
const (
	SettleSettled = "settled"
	SettleNoop    = "noop"
	SettleError   = "error"
)

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	settleUps           *prometheus.CounterVec
	settledTransactions prometheus.Counter
	settledAmount       prometheus.Counter
	eventsPublished     *prometheus.CounterVec
	listeners           prometheus.Gauge
	listenersPruned     prometheus.Counter
	remindersSent       prometheus.Counter
	rpcDuration         *prometheus.HistogramVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		settleUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settle_ups_total",
			Help:      "Settle-up calls by outcome.",
		}, []string{"result"}),
		settledTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_transactions_total",
			Help:      "Settlement transactions committed.",
		}),
		settledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_amount_total",
			Help:      "Sum of committed settlement amounts.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events broadcast to group listeners, by type.",
		}, []string{"type"}),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listeners",
			Help:      "Currently subscribed event listeners.",
		}),
		listenersPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listeners_pruned_total",
			Help:      "Listeners dropped because they fell behind or failed.",
		}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debt_reminders_total",
			Help:      "Debt reminder events published.",
		}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure and code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.settleUps,
		m.settledTransactions,
		m.settledAmount,
		m.eventsPublished,
		m.listeners,
		m.listenersPruned,
		m.remindersSent,
		m.rpcDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SettleUp records one settle-up call.
func (m *Metrics) SettleUp(result string, count int, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.settleUps.WithLabelValues(result).Inc()
	if count > 0 {
		m.settledTransactions.Add(float64(count))
		m.settledAmount.Add(total.InexactFloat64())
	}
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ListenerAdded() {
	if m == nil {
		return
	}
	m.listeners.Inc()
}

// ListenerRemoved records a listener leaving; pruned is true when the hub
// dropped it rather than the listener unsubscribing.
func (m *Metrics) ListenerRemoved(pruned bool) {
	if m == nil {
		return
	}
	m.listeners.Dec()
	if pruned {
		m.listenersPruned.Inc()
	}
}

func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

// ObserveRPC records the latency of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}

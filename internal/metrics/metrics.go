// Package metrics exposes Prometheus instruments for the cart synchronizer.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cartsync"

// Outcome labels for mutations.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped" // item was busy
	OutcomeFailed  = "failed"
)

// Metrics holds the synchronizer's instruments.
type Metrics struct {
	mutations *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	items     prometheus.Gauge
	total     prometheus.Gauge
}

// New registers the instruments with reg. A nil reg creates unregistered
// instruments (useful in tests that read them directly).
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Cart refreshes by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_items",
			Help:      "Sum of item quantities after the last successful refresh.",
		}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_total",
			Help:      "Cart total after the last successful refresh.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.mutations, m.refreshes, m.items, m.total} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Mutation counts one mutation attempt.
func (m *Metrics) Mutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

// Refresh counts one refresh. On success it also records the new count and
// total.
func (m *Metrics) Refresh(err error, count int, total float64) {
	if m == nil {
		return
	}
	if err != nil {
		m.refreshes.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	m.refreshes.WithLabelValues(OutcomeApplied).Inc()
	m.items.Set(float64(count))
	m.total.Set(total)
}

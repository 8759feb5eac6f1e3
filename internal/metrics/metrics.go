// Package metrics exposes relay activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomchat"

// Counter is anything that can report a current size, such as the room or
// name registry.
type Counter interface {
	Len() int
}

// Metrics owns a private registry so several instances can coexist in tests.
// All recording methods are safe on a nil *Metrics.
type Metrics struct {
	registry       *prometheus.Registry
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	messages       prometheus.Counter
	lagged         prometheus.Counter
	commands       *prometheus.CounterVec
	nameConflicts  prometheus.Counter
	rateLimited    prometheus.Counter
	rejected       prometheus.Counter
}

// New registers the relay collectors. rooms and names may be nil.
func New(rooms, names Counter) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently connected.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions accepted since start.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Chat lines published to rooms.",
		}),
		lagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_missed_total",
			Help:      "Broadcast messages lost by lagging subscribers.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands handled, by command word.",
		}, []string{"command"}),
		nameConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_conflicts_total",
			Help:      "Rename attempts refused because the name was taken.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rate_limited_total",
			Help:      "Chat lines dropped by the per-session rate limiter.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections refused because the server was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.sessionsActive, m.sessionsTotal, m.messages, m.lagged,
		m.commands, m.nameConflicts, m.rateLimited, m.rejected,
	)
	if rooms != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms with at least one member.",
		}, func() float64 { return float64(rooms.Len()) }))
	}
	if names != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "names_claimed",
			Help:      "Display names currently claimed.",
		}, func() float64 { return float64(names.Len()) }))
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) MessagePublished() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *Metrics) MessagesMissed(n uint64) {
	if m == nil {
		return
	}
	m.lagged.Add(float64(n))
}

func (m *Metrics) Command(word string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(word).Inc()
}

func (m *Metrics) NameConflict() {
	if m == nil {
		return
	}
	m.nameConflicts.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

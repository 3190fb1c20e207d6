// Package observability provides ready-made service listeners for metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/statch/statch/pkg/domain"
)

// Metrics is a domain.Listener backed by Prometheus collectors. Register it
// on a service with service.Subscribe(metrics.Listen).
type Metrics struct {
	machine string

	transitions *prometheus.CounterVec
	changes     prometheus.Counter
	current     *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on reg. The machine label
// distinguishes multiple machines sharing a registry.
func NewMetrics(reg prometheus.Registerer, machine string) (*Metrics, error) {
	m := &Metrics{
		machine: machine,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statch_notifications_total",
			Help: "Service notifications, labelled by the state value observed.",
		}, []string{"machine", "value"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "statch_changes_total",
			Help:        "Notifications whose result carried an observable change.",
			ConstLabels: prometheus.Labels{"machine": machine},
		}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statch_current_state",
			Help: "1 for the state the service currently occupies, 0 otherwise.",
		}, []string{"machine", "value"}),
	}

	for _, c := range []prometheus.Collector{m.transitions, m.changes, m.current} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Listen is the listener to subscribe on a service.
func (m *Metrics) Listen(state domain.StateResult) {
	m.transitions.WithLabelValues(m.machine, state.Value).Inc()
	if state.Changed {
		m.changes.Inc()
	}
	m.current.Reset()
	m.current.WithLabelValues(m.machine, state.Value).Set(1)
}

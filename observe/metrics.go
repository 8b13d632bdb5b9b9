package observe

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events in Prometheus.
type MetricsSink struct {
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

// NewMetricsSink registers the counters on reg (prometheus.DefaultRegisterer
// when nil). Registering twice on the same registry reuses the existing
// collectors.
func NewMetricsSink(reg prometheus.Registerer, namespace string) (*MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "events_total",
			Help:      "Total number of state substrate mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "events_dropped_total",
			Help:      "Total number of observability events dropped before delivery",
		},
		[]string{"operation"},
	)

	var err error
	if events, err = registerCounterVec(reg, events); err != nil {
		return nil, err
	}
	if dropped, err = registerCounterVec(reg, dropped); err != nil {
		return nil, err
	}
	return &MetricsSink{events: events, dropped: dropped}, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

// Emit implements Sink.
func (m *MetricsSink) Emit(e Event) {
	m.events.WithLabelValues(string(e.Operation), string(e.Outcome)).Inc()
}

// ObserveDrop counts an event lost before delivery. It matches the
// AsyncOptions.OnDrop signature.
func (m *MetricsSink) ObserveDrop(e Event) {
	m.dropped.WithLabelValues(string(e.Operation)).Inc()
}

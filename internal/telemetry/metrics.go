// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nodesel/nodesel/internal/resolver"
)

const namespace = "nodesel"

// Metrics counts resolutions in Prometheus collectors.
type Metrics struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	warnings    *prometheus.CounterVec
}

var _ resolver.Emitter = (*Metrics)(nil)

// NewMetrics registers the resolution collectors in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Successful node runtime resolutions by selected version, strategy and environment.",
			},
			[]string{"version", "strategy", "environment"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_failures_total",
				Help:      "Resolutions that found no compatible node runtime, by handler and environment.",
			},
			[]string{"handler", "environment"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_warnings_total",
				Help:      "Resolutions that selected a runtime with an operator warning, by selected version.",
			},
			[]string{"version"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Emit updates the counters for selection and failure events. Other events are ignored.
func (m *Metrics) Emit(_ context.Context, event string, fields map[string]string) {
	switch event {
	case resolver.EventNodeVersionSelection:
		m.resolutions.WithLabelValues(fields["selected_version"], fields["strategy"], fields["environment"]).Inc()
		if fields["has_warning"] == "true" {
			m.warnings.WithLabelValues(fields["selected_version"]).Inc()
		}
	case resolver.EventNodeVersionFailure:
		m.failures.WithLabelValues(fields["handler"], fields["environment"]).Inc()
	}
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

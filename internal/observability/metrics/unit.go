package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UnitMetrics contains Prometheus metrics for unit lifecycle operations.
type UnitMetrics struct {
	registry *prometheus.Registry

	transitionsTotal *prometheus.CounterVec
	renderCallsTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewUnitMetrics creates and registers new unit metrics.
func NewUnitMetrics(registry *prometheus.Registry) (*UnitMetrics, error) {
	m := &UnitMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *UnitMetrics) initMetrics() error {
	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_unit_transitions_total",
			Help: "Total number of unit lifecycle transitions",
		},
		[]string{"unit_id", "transition", "result"},
	)

	m.renderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_unit_render_calls_total",
			Help: "Total number of render callback invocations",
		},
		[]string{"unit_id", "result"},
	)

	m.collectors = []prometheus.Collector{
		m.transitionsTotal,
		m.renderCallsTotal,
	}

	return nil
}

// RecordTransition increments the transition counter.
func (m *UnitMetrics) RecordTransition(unitID, transition, result string) {
	m.transitionsTotal.WithLabelValues(unitID, transition, result).Inc()
}

// RecordRenderCall increments the render call counter.
func (m *UnitMetrics) RecordRenderCall(unitID, result string) {
	m.renderCallsTotal.WithLabelValues(unitID, result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *UnitMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *UnitMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Package metrics provides Prometheus metrics for caudio queue and unit operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics contains Prometheus metrics for streaming queue and buffer pool operations.
type QueueMetrics struct {
	registry *prometheus.Registry

	// Buffer pool metrics
	buffersFree       *prometheus.GaugeVec
	buffersCheckedOut *prometheus.GaugeVec
	acquiresTotal     *prometheus.CounterVec
	submitsTotal      *prometheus.CounterVec
	completionsTotal  *prometheus.CounterVec
	leaseDropsTotal   *prometheus.CounterVec

	// Queue lifecycle metrics
	queueStartsTotal *prometheus.CounterVec
	queueStopsTotal  *prometheus.CounterVec
	queueErrorsTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewQueueMetrics creates and registers new queue metrics.
func NewQueueMetrics(registry *prometheus.Registry) (*QueueMetrics, error) {
	m := &QueueMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *QueueMetrics) initMetrics() error {
	m.buffersFree = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "caudio_queue_buffers_free",
			Help: "Number of buffers currently in the ready queue",
		},
		[]string{"queue_id"},
	)

	m.buffersCheckedOut = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "caudio_queue_buffers_checked_out",
			Help: "Number of buffers currently checked out of the pool",
		},
		[]string{"queue_id"},
	)

	m.acquiresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_acquires_total",
			Help: "Total number of buffer acquisitions",
		},
		[]string{"queue_id"},
	)

	m.submitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_submits_total",
			Help: "Total number of buffers submitted to the host",
		},
		[]string{"queue_id"},
	)

	m.completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_completions_total",
			Help: "Total number of host completion notifications",
		},
		[]string{"queue_id"},
	)

	m.leaseDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_lease_drops_total",
			Help: "Total number of leases released without submitting",
		},
		[]string{"queue_id"},
	)

	m.queueStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_starts_total",
			Help: "Total number of queue start operations",
		},
		[]string{"queue_id", "result"},
	)

	m.queueStopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_stops_total",
			Help: "Total number of queue stop operations",
		},
		[]string{"queue_id", "result"},
	)

	m.queueErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caudio_queue_errors_total",
			Help: "Total number of host errors surfaced by queue operations",
		},
		[]string{"queue_id", "operation"},
	)

	m.collectors = []prometheus.Collector{
		m.buffersFree,
		m.buffersCheckedOut,
		m.acquiresTotal,
		m.submitsTotal,
		m.completionsTotal,
		m.leaseDropsTotal,
		m.queueStartsTotal,
		m.queueStopsTotal,
		m.queueErrorsTotal,
	}

	return nil
}

// UpdateBuffersFree sets the free-buffer gauge for a queue.
func (m *QueueMetrics) UpdateBuffersFree(queueID string, n int) {
	m.buffersFree.WithLabelValues(queueID).Set(float64(n))
}

// UpdateBuffersCheckedOut sets the checked-out gauge for a queue.
func (m *QueueMetrics) UpdateBuffersCheckedOut(queueID string, n int) {
	m.buffersCheckedOut.WithLabelValues(queueID).Set(float64(n))
}

// RecordAcquire increments the acquire counter for a queue.
func (m *QueueMetrics) RecordAcquire(queueID string) {
	m.acquiresTotal.WithLabelValues(queueID).Inc()
}

// RecordSubmit increments the submit counter for a queue.
func (m *QueueMetrics) RecordSubmit(queueID string) {
	m.submitsTotal.WithLabelValues(queueID).Inc()
}

// RecordCompletion increments the completion counter for a queue.
func (m *QueueMetrics) RecordCompletion(queueID string) {
	m.completionsTotal.WithLabelValues(queueID).Inc()
}

// RecordLeaseDrop increments the lease-drop counter for a queue.
func (m *QueueMetrics) RecordLeaseDrop(queueID string) {
	m.leaseDropsTotal.WithLabelValues(queueID).Inc()
}

// RecordStart increments the start counter with the given result label.
func (m *QueueMetrics) RecordStart(queueID, result string) {
	m.queueStartsTotal.WithLabelValues(queueID, result).Inc()
}

// RecordStop increments the stop counter with the given result label.
func (m *QueueMetrics) RecordStop(queueID, result string) {
	m.queueStopsTotal.WithLabelValues(queueID, result).Inc()
}

// RecordError increments the host-error counter for an operation.
func (m *QueueMetrics) RecordError(queueID, operation string) {
	m.queueErrorsTotal.WithLabelValues(queueID, operation).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *QueueMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *QueueMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

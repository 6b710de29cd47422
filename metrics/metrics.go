// Package metrics provides Prometheus-compatible instrumentation for the
// data store engine's iteration loop.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the store/delta engine, all
// namespaced "cylcstore_":
//
//  1. iteration_latency_ms (histogram): wall time of a full Manager.Iterate
//     call. Labels: workflow_id.
//  2. delta_entities_total (counter): entities placed into a delta bucket.
//     Labels: workflow_id, kind, bucket (added/updated/pruned).
//  3. checksum_latency_ms (histogram): wall time of the whole finalize
//     step (merge into the store, per-kind checksums, bundle assembly).
//     Labels: workflow_id.
//  4. pruned_points_total (counter): distinct cycle points whose task
//     proxies were pruned. Labels: workflow_id.
//  5. apply_skipped_total (counter): updates skipped because their target
//     id was absent from the store (the §7 "missing update target" case).
//     Labels: workflow_id, kind.
type Metrics struct {
	iterationLatency *prometheus.HistogramVec
	deltaEntities    *prometheus.CounterVec
	checksumLatency  *prometheus.HistogramVec
	prunedPoints     *prometheus.CounterVec
	applySkipped     *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// New creates and registers all engine metrics with registry. A nil
// registry uses prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.iterationLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cylcstore",
		Name:      "iteration_latency_ms",
		Help:      "Wall time of a full data store iteration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"workflow_id"})

	m.deltaEntities = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cylcstore",
		Name:      "delta_entities_total",
		Help:      "Entities placed into a delta bucket per iteration",
	}, []string{"workflow_id", "kind", "bucket"})

	m.checksumLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cylcstore",
		Name:      "checksum_latency_ms",
		Help:      "Wall time of the finalize step, including per-kind checksums",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100},
	}, []string{"workflow_id"})

	m.prunedPoints = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cylcstore",
		Name:      "pruned_points_total",
		Help:      "Cycle points pruned from the graph elements engine",
	}, []string{"workflow_id"})

	m.applySkipped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cylcstore",
		Name:      "apply_skipped_total",
		Help:      "Updates skipped because their target id was absent from the store",
	}, []string{"workflow_id", "kind"})

	return m
}

func (m *Metrics) RecordIterationLatency(workflowID string, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.iterationLatency.WithLabelValues(workflowID).Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) AddDeltaEntities(workflowID, kind, bucket string, n int) {
	if !m.isEnabled() || n <= 0 {
		return
	}
	m.deltaEntities.WithLabelValues(workflowID, kind, bucket).Add(float64(n))
}

func (m *Metrics) RecordChecksumLatency(workflowID string, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.checksumLatency.WithLabelValues(workflowID).Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) AddPrunedPoints(workflowID string, n int) {
	if !m.isEnabled() || n <= 0 {
		return
	}
	m.prunedPoints.WithLabelValues(workflowID).Add(float64(n))
}

func (m *Metrics) IncApplySkipped(workflowID, kind string) {
	if !m.isEnabled() {
		return
	}
	m.applySkipped.WithLabelValues(workflowID, kind).Inc()
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable stops recording (useful for tests that don't want registry churn).
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable resumes recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// Package metrics exposes Prometheus instrumentation for the durable wrapper
// and the storage layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process registry and all instruments. It satisfies both
// the durable wrapper's observation seam and the storage MetricsHook.
type Metrics struct {
	registry *prometheus.Registry

	calls  *prometheus.CounterVec
	faults *prometheus.CounterVec

	storeWrite  prometheus.Histogram
	storeRead   prometheus.Histogram
	storeCommit prometheus.Histogram
	commitOps   prometheus.Histogram
}

// New builds a registry with Go runtime and process collectors plus the
// oplog instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oplog",
			Name:      "durable_calls_total",
			Help:      "Wrapped capability calls by operation and mode (live|replay).",
		}, []string{"operation", "mode"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oplog",
			Name:      "durable_faults_total",
			Help:      "Fault outcomes by taxonomy kind.",
		}, []string{"kind"}),
		storeWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oplog",
			Name:      "store_write_seconds",
			Help:      "Storage write latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		storeRead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oplog",
			Name:      "store_read_seconds",
			Help:      "Storage read latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		storeCommit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oplog",
			Name:      "store_batch_commit_seconds",
			Help:      "Storage batch commit latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		commitOps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oplog",
			Name:      "store_batch_commit_ops",
			Help:      "Operations per committed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	reg.MustRegister(m.calls, m.faults, m.storeWrite, m.storeRead, m.storeCommit, m.commitOps)
	return m
}

// ObserveCall implements durable.Metrics.
func (m *Metrics) ObserveCall(operation, mode string) {
	m.calls.WithLabelValues(operation, mode).Inc()
}

// ObserveFault implements durable.Metrics.
func (m *Metrics) ObserveFault(kind string) {
	m.faults.WithLabelValues(kind).Inc()
}

// ObserveWrite implements pebblestore.MetricsHook.
func (m *Metrics) ObserveWrite(elapsed time.Duration, _ int) {
	m.storeWrite.Observe(elapsed.Seconds())
}

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(elapsed time.Duration, _ int) {
	m.storeRead.Observe(elapsed.Seconds())
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, _ int) {
	m.storeCommit.Observe(elapsed.Seconds())
	m.commitOps.Observe(float64(numOps))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

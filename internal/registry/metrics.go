package registry

import (
	"sync/atomic"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the engine-wide Prometheus metric set (spec §6.1:
// get_metrics) plus a plain-atomic total-latency accumulator, grounded
// on FerretDB's cursor.Registry CounterVec/HistogramVec pattern
// (internal/clientconn/cursor/registry.go).
type Metrics struct {
	queryCount prometheus.Counter
	errorCount prometheus.Counter
	latency    prometheus.Histogram

	totalLatencyMs atomic.Int64
	startedAt      time.Time
}

// NewMetrics constructs and, if reg is non-nil, registers the metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queryCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "odbc_fast",
			Name:      "queries_total",
			Help:      "Total number of queries executed.",
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "odbc_fast",
			Name:      "query_errors_total",
			Help:      "Total number of queries that returned an error.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "odbc_fast",
			Name:      "query_duration_seconds",
			Help:      "Query execution latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		startedAt: time.Now(),
	}
	if reg != nil {
		reg.MustRegister(m.queryCount, m.errorCount, m.latency)
	}
	return m
}

// RecordQuery records one query's outcome and latency.
func (m *Metrics) RecordQuery(d time.Duration, failed bool) {
	m.queryCount.Inc()
	if failed {
		m.errorCount.Inc()
	}
	m.latency.Observe(d.Seconds())
	m.totalLatencyMs.Add(d.Milliseconds())
}

// Snapshot is the plain-value view returned across the ABI boundary.
type Snapshot struct {
	QueryCount     uint64
	ErrorCount     uint64
	UptimeSecs     uint64
	TotalLatencyMs uint64
}

// snapshotCounts reads the current counter values. Prometheus counters
// don't expose their value through a getter, only through the Metric
// interface's Write method used by collectors/exporters, so the engine
// reads it the same way a real scrape would.
func (m *Metrics) snapshotCounts() (queries, errs uint64) {
	queries = uint64(readCounter(m.queryCount))
	errs = uint64(readCounter(m.errorCount))
	return
}

func readCounter(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

// GetSnapshot returns the current metric values for get_metrics.
func (m *Metrics) GetSnapshot() Snapshot {
	queries, errs := m.snapshotCounts()
	return Snapshot{
		QueryCount:     queries,
		ErrorCount:     errs,
		UptimeSecs:     uint64(time.Since(m.startedAt).Seconds()),
		TotalLatencyMs: uint64(m.totalLatencyMs.Load()),
	}
}

package engine

import (
	"encoding/binary"
	"math"

	"github.com/cesarcarlos/odbcengine/internal/registry"
)

// GetMetrics returns the spec §6.1 "get_metrics" wire buffer: 5 little-
// endian u64 values (query_count, error_count, uptime_secs,
// total_latency_ms, avg_latency_ms).
func (e *Engine) GetMetrics() []byte {
	snap := e.reg.Metrics().GetSnapshot()

	var avgLatencyMs uint64
	if snap.QueryCount > 0 {
		avgLatencyMs = snap.TotalLatencyMs / snap.QueryCount
	}

	buf := make([]byte, 40)
	binary.LittleEndian.PutUint64(buf[0:8], snap.QueryCount)
	binary.LittleEndian.PutUint64(buf[8:16], snap.ErrorCount)
	binary.LittleEndian.PutUint64(buf[16:24], snap.UptimeSecs)
	binary.LittleEndian.PutUint64(buf[24:32], snap.TotalLatencyMs)
	binary.LittleEndian.PutUint64(buf[32:40], avgLatencyMs)
	return buf
}

// GetCacheMetrics returns the spec §6.1 "get_cache_metrics" wire buffer:
// 8 little-endian 8-byte values, the last (avg_executions_per_stmt) an
// f64's raw bits rather than an integer.
func (e *Engine) GetCacheMetrics() []byte {
	stats := e.reg.AggregateCacheStats()

	buf := make([]byte, 64)
	binary.LittleEndian.PutUint64(buf[0:8], stats.CacheSize)
	binary.LittleEndian.PutUint64(buf[8:16], stats.CacheMaxSize)
	binary.LittleEndian.PutUint64(buf[16:24], stats.CacheHits)
	binary.LittleEndian.PutUint64(buf[24:32], stats.CacheMisses)
	binary.LittleEndian.PutUint64(buf[32:40], stats.TotalPrepares)
	binary.LittleEndian.PutUint64(buf[40:48], stats.TotalExecutions)
	binary.LittleEndian.PutUint64(buf[48:56], stats.MemoryUsageBytes)
	binary.LittleEndian.PutUint64(buf[56:64], math.Float64bits(stats.AvgExecutionsPerStmt))
	return buf
}

// ClearStatementCache clears every live connection's statement cache
// (spec §6.1 "clear_statement_cache").
func (e *Engine) ClearStatementCache() error {
	e.reg.ClearAllCaches()
	return nil
}

// ConnectionStats returns a per-connection query-count/error-count
// breakdown (spec §C.3: "connection-level statistics"). This is a
// Go-only addition layered on top of get_metrics, not part of the
// fixed-width ABI buffer, so it is exposed as a typed method rather
// than a byte-buffer encoder.
func (e *Engine) ConnectionStats() []registry.ConnStats {
	return e.reg.ConnectionStats()
}

package registry

import (
	"sort"

	"golang.org/x/exp/maps"

	"github.com/cesarcarlos/odbcengine/internal/cache"
)

// ConnStats is one connection's query-count/error-count breakdown,
// additive to the engine-wide get_metrics snapshot (spec §C.3:
// "connection-level statistics").
type ConnStats struct {
	ConnID     uint32
	QueryCount uint64
	ErrorCount uint64
}

// ConnectionStats returns a deterministically-ordered snapshot of every
// live connection's own counters (spec §C.3). Map iteration order is
// randomized, so the connection IDs are collected with
// golang.org/x/exp/maps.Keys and sorted before the snapshot is built —
// the same stable-ordering role the teacher's cursor registry uses the
// same package for.
func (r *Registry) ConnectionStats() []ConnStats {
	return withLockNoErr(r, func() []ConnStats {
		ids := maps.Keys(r.connections)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		out := make([]ConnStats, 0, len(ids))
		for _, id := range ids {
			h := r.connections[id]
			out = append(out, ConnStats{
				ConnID:     id,
				QueryCount: h.queryCount.Load(),
				ErrorCount: h.errorCount.Load(),
			})
		}
		return out
	})
}

// AggregateCacheStats sums the per-connection statement caches' metrics
// (spec §4.8 is connection-scoped, but get_cache_metrics/
// clear_statement_cache take no conn_id — §6.1 — so the ABI surface
// reports engine-wide totals across every live connection's cache).
func (r *Registry) AggregateCacheStats() cache.Metrics {
	return withLockNoErr(r, func() cache.Metrics {
		var agg cache.Metrics
		for _, h := range r.connections {
			s := h.Cache.Stats()
			agg.CacheSize += s.CacheSize
			agg.CacheMaxSize += s.CacheMaxSize
			agg.CacheHits += s.CacheHits
			agg.CacheMisses += s.CacheMisses
			agg.TotalPrepares += s.TotalPrepares
			agg.TotalExecutions += s.TotalExecutions
			agg.MemoryUsageBytes += s.MemoryUsageBytes
		}
		if agg.CacheSize > 0 {
			agg.AvgExecutionsPerStmt = float64(agg.TotalExecutions) / float64(agg.CacheSize)
		}
		return agg
	})
}

// ClearAllCaches clears every live connection's statement cache (spec
// §6.1 "clear_statement_cache").
func (r *Registry) ClearAllCaches() {
	withLockNoErr(r, func() struct{} {
		for _, h := range r.connections {
			h.Cache.Clear()
		}
		return struct{}{}
	})
}

// withLockNoErr runs fn under the registry's mutex for operations that
// cannot fail (no poisoning check needed beyond what withLock already
// gives other callers, but these two never return an error to report).
func withLockNoErr[T any](r *Registry, fn func() T) T {
	result, _ := withLock(r, func() (T, error) {
		return fn(), nil
	})
	return result
}

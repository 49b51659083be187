// Package cache implements the bounded prepared-statement fingerprint
// cache of spec §4.8: a fingerprint→entry map used for eviction and usage
// metrics, not for holding a reusable driver statement object (the driver
// re-prepares on every execute).
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Entry is one cache entry's metadata.
type Entry struct {
	SQL             string
	CreatedAt       time.Time
	LastUsed        time.Time
	HitCount        uint64
	TotalExecutions uint64
}

// Metrics is the snapshot returned by Stats, matching the get_cache_metrics
// ABI buffer fields (spec §4.8, §6.1).
type Metrics struct {
	CacheSize              uint64
	CacheMaxSize           uint64
	CacheHits              uint64
	CacheMisses            uint64
	TotalPrepares          uint64
	TotalExecutions        uint64
	MemoryUsageBytes       uint64
	AvgExecutionsPerStmt   float64
}

// Cache is the bounded, LRU-evicting prepared-statement fingerprint cache.
// A maxSize of 0 makes the cache a permanent no-op: GetOrInsert always
// misses and never inserts.
type Cache struct {
	mu      sync.Mutex
	maxSize int

	entries map[string]*list.Element // fingerprint -> element holding *cacheNode
	order   *list.List               // front = most recently used

	hits, misses, totalPrepares, totalExecutions uint64
}

type cacheNode struct {
	fingerprint string
	entry       *Entry
}

// New creates a Cache bounded at maxSize entries.
func New(maxSize int) *Cache {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// GetOrInsert records a lookup for fingerprint (the normalized SQL text).
// On hit it bumps HitCount/LastUsed and returns (entry, true). On miss it
// inserts a fresh entry (evicting the LRU entry if at capacity) and
// returns (entry, false) — unless the cache has maxSize 0, in which case
// every call is a miss and nothing is inserted.
func (c *Cache) GetOrInsert(fingerprint string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if c.maxSize == 0 {
		c.misses++
		return Entry{SQL: fingerprint, CreatedAt: now, LastUsed: now}, false
	}

	if elem, ok := c.entries[fingerprint]; ok {
		c.order.MoveToFront(elem)
		node := elem.Value.(*cacheNode)
		node.entry.HitCount++
		node.entry.LastUsed = now
		c.hits++
		return *node.entry, true
	}

	c.misses++
	c.totalPrepares++

	if c.order.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &Entry{SQL: fingerprint, CreatedAt: now, LastUsed: now}
	node := &cacheNode{fingerprint: fingerprint, entry: entry}
	elem := c.order.PushFront(node)
	c.entries[fingerprint] = elem

	return *entry, false
}

// RecordExecution increments the execution counters for fingerprint, if present.
func (c *Cache) RecordExecution(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalExecutions++
	if elem, ok := c.entries[fingerprint]; ok {
		elem.Value.(*cacheNode).entry.TotalExecutions++
	}
}

func (c *Cache) evictLRU() {
	back := c.order.Back()
	if back == nil {
		return
	}
	node := back.Value.(*cacheNode)
	delete(c.entries, node.fingerprint)
	c.order.Remove(back)
}

// Size returns the current number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes every entry without resetting lifetime metrics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
}

// approxEntryOverheadBytes is a rough accounting unit used for the
// memory_usage_bytes metric: the fixed struct overhead is the dominant
// term for typical SQL text lengths.
const approxEntryOverheadBytes = 64

// Stats returns a metrics snapshot.
func (c *Cache) Stats() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := uint64(c.order.Len())
	var memBytes uint64
	for _, elem := range c.entries {
		node := elem.Value.(*cacheNode)
		memBytes += uint64(len(node.fingerprint)) + approxEntryOverheadBytes
	}

	var avg float64
	if size > 0 {
		avg = float64(c.totalExecutions) / float64(size)
	}

	return Metrics{
		CacheSize:            size,
		CacheMaxSize:         uint64(c.maxSize),
		CacheHits:            c.hits,
		CacheMisses:          c.misses,
		TotalPrepares:        c.totalPrepares,
		TotalExecutions:      c.totalExecutions,
		MemoryUsageBytes:     memBytes,
		AvgExecutionsPerStmt: avg,
	}
}

package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrInsertMissThenHit(t *testing.T) {
	t.Parallel()

	c := New(10)
	_, hit := c.GetOrInsert("SELECT 1")
	require.False(t, hit)

	_, hit = c.GetOrInsert("SELECT 1")
	require.True(t, hit)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(1), stats.CacheMisses)
	assert.Equal(t, uint64(1), stats.TotalPrepares)
}

func TestCacheBoundedWithLRUEviction(t *testing.T) {
	t.Parallel()

	c := New(2)
	c.GetOrInsert("A")
	c.GetOrInsert("B")
	c.GetOrInsert("A") // touch A, making B the LRU entry
	c.GetOrInsert("C") // evicts B

	assert.Equal(t, 2, c.Size())
	_, hitA := c.GetOrInsert("A")
	assert.True(t, hitA)
	_, hitC := c.GetOrInsert("C")
	assert.True(t, hitC)
	_, hitB := c.GetOrInsert("B")
	assert.False(t, hitB, "B should have been evicted")
}

func TestCacheSizeNeverExceedsMaxAfterManyInsertions(t *testing.T) {
	t.Parallel()

	const maxSize = 5
	c := New(maxSize)
	for i := 0; i < 50; i++ {
		c.GetOrInsert(fmt.Sprintf("SELECT %d", i))
		assert.LessOrEqual(t, c.Size(), maxSize)
	}
	assert.Equal(t, maxSize, c.Size())
}

func TestCacheZeroSizeIsNoop(t *testing.T) {
	t.Parallel()

	c := New(0)
	_, hit1 := c.GetOrInsert("SELECT 1")
	_, hit2 := c.GetOrInsert("SELECT 1")
	assert.False(t, hit1)
	assert.False(t, hit2)
	assert.Equal(t, 0, c.Size())
}

func TestCacheNegativeSizeTreatedAsZero(t *testing.T) {
	t.Parallel()
	c := New(-5)
	_, hit := c.GetOrInsert("x")
	assert.False(t, hit)
	assert.Equal(t, 0, c.Size())
}

func TestCacheMetricsAvgExecutions(t *testing.T) {
	t.Parallel()

	c := New(10)
	c.GetOrInsert("A")
	c.GetOrInsert("B")
	c.RecordExecution("A")
	c.RecordExecution("A")
	c.RecordExecution("B")

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.TotalExecutions)
	assert.InDelta(t, 1.5, stats.AvgExecutionsPerStmt, 0.0001)
}

func TestCacheMetricsAvgExecutionsEmptyCache(t *testing.T) {
	t.Parallel()
	c := New(10)
	stats := c.Stats()
	assert.Equal(t, float64(0), stats.AvgExecutionsPerStmt)
}

func TestCacheHitsPlusMissesEqualsLookups(t *testing.T) {
	t.Parallel()

	c := New(3)
	lookups := 0
	for i := 0; i < 20; i++ {
		c.GetOrInsert(fmt.Sprintf("q%d", i%5))
		lookups++
	}
	stats := c.Stats()
	assert.Equal(t, uint64(lookups), stats.CacheHits+stats.CacheMisses)
}

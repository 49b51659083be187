package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMetricsSnapshotCountsQueriesAndErrors(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	m := r.Metrics()

	m.RecordQuery(10*time.Millisecond, false)
	m.RecordQuery(20*time.Millisecond, true)

	snap := m.GetSnapshot()
	assert.Equal(t, uint64(2), snap.QueryCount)
	assert.Equal(t, uint64(1), snap.ErrorCount)
	assert.Equal(t, uint64(30), snap.TotalLatencyMs)
}

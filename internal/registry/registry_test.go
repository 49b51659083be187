package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

type stubEnv struct{ closed bool }

func (s *stubEnv) Close() error { s.closed = true; return nil }

type stubConn struct{ closed bool }

func (s *stubConn) Prepare(ctx context.Context, sql string) (driver.Statement, error) { return nil, nil }
func (s *stubConn) ExecDirect(ctx context.Context, sql string) error                  { return nil }
func (s *stubConn) SetAutocommit(autocommit bool) error                              { return nil }
func (s *stubConn) EndTran(ctx context.Context, commit bool) error                    { return nil }
func (s *stubConn) Ping(ctx context.Context) error                                    { return nil }
func (s *stubConn) Close() error                                                      { s.closed = true; return nil }

func TestEnvironmentLifecycle(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	env := &stubEnv{}
	require.NoError(t, r.InitEnvironment(env))

	second := &stubEnv{}
	require.NoError(t, r.InitEnvironment(second))
	assert.False(t, second.closed)

	got, err := r.Environment()
	require.NoError(t, err)
	assert.Same(t, env, got)

	require.NoError(t, r.CloseEnvironment())
	assert.True(t, env.closed)

	_, err = r.Environment()
	require.ErrorIs(t, err, odbcerr.ErrEnvironmentNotInitialized)
}

func TestConnectionAndStatementLifecycle(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	conn := &stubConn{}
	id, err := r.RegisterConnection(conn, "DRIVER={SQLite3}", driver.NoopPlugin(), 16)
	require.NoError(t, err)

	stmtID, err := r.Prepare(id, "SELECT 1", 0)
	require.NoError(t, err)

	_, err = r.Statement(stmtID)
	require.NoError(t, err)

	n, err := r.ClearAllStatements(id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.Statement(stmtID)
	require.Error(t, err)

	require.NoError(t, r.Disconnect(context.Background(), id))
	assert.True(t, conn.closed)

	_, err = r.Connection(id)
	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindInvalidHandle, oErr.Kind)
}

func TestUnknownHandlesReturnInvalidHandle(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	_, err := r.Connection(42)
	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindInvalidHandle, oErr.Kind)
	assert.Equal(t, uint32(42), oErr.Handle)
}

func TestErrorSlotsGlobalAndPerConnection(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	globalErr := odbcerr.NewInternal("boom")
	r.SetError(0, globalErr)
	assert.Same(t, globalErr, r.LastError(0))

	connErr := odbcerr.NewValidation("bad param")
	r.SetError(7, connErr)
	assert.Same(t, connErr, r.LastError(7))
	assert.Same(t, connErr, r.LastError(0), "SetError on a connection also updates the global slot")
}

func TestConnectionStatsAreOrderedAndIndependentPerConnection(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	id1, err := r.RegisterConnection(&stubConn{}, "DRIVER={SQLite3}", driver.NoopPlugin(), 16)
	require.NoError(t, err)
	id2, err := r.RegisterConnection(&stubConn{}, "DRIVER={SQLite3}", driver.NoopPlugin(), 16)
	require.NoError(t, err)

	h1, err := r.Connection(id1)
	require.NoError(t, err)
	h1.RecordQuery(false)
	h1.RecordQuery(true)

	h2, err := r.Connection(id2)
	require.NoError(t, err)
	h2.RecordQuery(false)

	stats := r.ConnectionStats()
	require.Len(t, stats, 2)
	assert.Less(t, stats[0].ConnID, stats[1].ConnID, "stats are sorted by connection ID")

	for _, s := range stats {
		switch s.ConnID {
		case id1:
			assert.Equal(t, uint64(2), s.QueryCount)
			assert.Equal(t, uint64(1), s.ErrorCount)
		case id2:
			assert.Equal(t, uint64(1), s.QueryCount)
			assert.Equal(t, uint64(0), s.ErrorCount)
		}
	}
}

func TestPooledConnIDsRecycleThroughFreeList(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	poolID, err := r.RegisterPool(nil, driver.NoopPlugin(), "DRIVER={SQLite3}")
	require.NoError(t, err)

	connHandle := &ConnHandle{ID: 1, Conn: &stubConn{}}
	id1, err := r.AcquirePooledConn(poolID, connHandle)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id1, uint32(pooledConnIDBase))

	_, _, err = r.ReleasePooledConn(id1)
	require.NoError(t, err)

	id2, err := r.AcquirePooledConn(poolID, connHandle)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "freed pooled-connection IDs should be reused")
}

func TestRegistryRecoversFromPanicAndPoisonsOnFurtherUse(t *testing.T) {
	t.Parallel()

	r := New(zap.NewNop())
	_, err := withLock(r, func() (int, error) {
		panic("boom")
	})
	require.Error(t, err)

	_, err = r.Connection(1)
	require.Error(t, err)
	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindInternalError, oErr.Kind)
}

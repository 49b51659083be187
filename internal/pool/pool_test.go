package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
)

type fakeConn struct {
	closed    atomic.Bool
	pingErr   error
	autocomm  atomic.Bool
}

func (f *fakeConn) Prepare(ctx context.Context, sql string) (driver.Statement, error) { return nil, nil }
func (f *fakeConn) ExecDirect(ctx context.Context, sql string) error                  { return nil }
func (f *fakeConn) SetAutocommit(autocommit bool) error                              { f.autocomm.Store(autocommit); return nil }
func (f *fakeConn) EndTran(ctx context.Context, commit bool) error                    { return nil }
func (f *fakeConn) Ping(ctx context.Context) error                                    { return f.pingErr }
func (f *fakeConn) Close() error                                                      { f.closed.Store(true); return nil }

func TestCheckoutLazilyOpensUpToMax(t *testing.T) {
	t.Parallel()

	var opened atomic.Int32
	p := New("id", 2, false, func(ctx context.Context) (driver.Connection, error) {
		opened.Add(1)
		return &fakeConn{}, nil
	}, zap.NewNop())

	c1, err := p.Checkout(context.Background())
	require.NoError(t, err)
	c2, err := p.Checkout(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	assert.Equal(t, int32(2), opened.Load())

	state := p.State()
	assert.Equal(t, 2, state.NumInUse)
	assert.Equal(t, 0, state.NumIdle)
}

func TestCheckoutTimesOutWhenExhausted(t *testing.T) {
	t.Parallel()

	p := New("id", 1, false, func(ctx context.Context) (driver.Connection, error) {
		return &fakeConn{}, nil
	}, zap.NewNop())
	p.checkoutTimeout = 50 * time.Millisecond

	_, err := p.Checkout(context.Background())
	require.NoError(t, err)

	_, err = p.Checkout(context.Background())
	require.Error(t, err)
}

func TestReleaseWakesWaitingCheckout(t *testing.T) {
	t.Parallel()

	p := New("id", 1, false, func(ctx context.Context) (driver.Connection, error) {
		return &fakeConn{}, nil
	}, zap.NewNop())
	p.checkoutTimeout = 2 * time.Second

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Checkout(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Release(conn)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(1 * time.Second):
		t.Fatal("second checkout never unblocked after release")
	}
}

func TestTestOnCheckoutRejectsDeadIdleConnection(t *testing.T) {
	t.Parallel()

	var opened atomic.Int32
	p := New("id", 1, true, func(ctx context.Context) (driver.Connection, error) {
		opened.Add(1)
		return &fakeConn{pingErr: errors.New("dead")}, nil
	}, zap.NewNop())
	p.checkoutTimeout = 100 * time.Millisecond

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)
	p.Release(conn)

	replacement, err := p.Checkout(context.Background())
	require.NoError(t, err, "the dead idle connection is discarded and a replacement is opened in its place")
	assert.NotSame(t, conn, replacement)
	assert.Equal(t, int32(2), opened.Load())
}

func TestPoolIdentityAndSanitize(t *testing.T) {
	t.Parallel()

	connStr := "DRIVER={SQL Server};SERVER=db1;PORT=1433;UID=alice;PWD={p;ss}"
	assert.Equal(t, "db1:1433:alice", ExtractIdentity(connStr))

	sanitized := Sanitize(connStr)
	assert.Contains(t, sanitized, "PWD=***")
	assert.Contains(t, sanitized, "UID=***")
	assert.NotContains(t, sanitized, "p;ss")
}

func TestParseConnStringBraceQuotedSemicolon(t *testing.T) {
	t.Parallel()

	opts := ParseConnString("DRIVER={My;Driver};SERVER=localhost")
	v, ok := Lookup(opts, "driver")
	require.True(t, ok)
	assert.Equal(t, "My;Driver", v)
}

func TestParseBoolOptionGrammar(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"1", "true", "TRUE", "yes", "On"} {
		b, ok := ParseBoolOption(v)
		require.True(t, ok, v)
		assert.True(t, b, v)
	}
	for _, v := range []string{"0", "false", "FALSE", "no", "Off"} {
		b, ok := ParseBoolOption(v)
		require.True(t, ok, v)
		assert.False(t, b, v)
	}
	_, ok := ParseBoolOption("maybe")
	assert.False(t, ok)
}

func TestStripKeysRemovesMatchedOptionsOnly(t *testing.T) {
	t.Parallel()

	out := StripKeys("DRIVER={SQLite3};Test_On_Check_Out=no;SERVER=db1", TestOnCheckoutKeys...)
	assert.Equal(t, "DRIVER=SQLite3;SERVER=db1", out)
}

func TestDistinctPoolIdentitiesStayIndependent(t *testing.T) {
	t.Parallel()

	// Two pools that would otherwise share a bare identity string are
	// given distinct uuid-derived identities, the way a test harness
	// disambiguates concurrently-created pools over what would
	// otherwise be the same "server:port:user" identity key.
	idA := "shared-identity:" + uuid.NewString()
	idB := "shared-identity:" + uuid.NewString()
	require.NotEqual(t, idA, idB)

	open := func(ctx context.Context) (driver.Connection, error) { return &fakeConn{}, nil }
	pA := New(idA, 1, false, open, zap.NewNop())
	pB := New(idB, 1, false, open, zap.NewNop())

	connA, err := pA.Checkout(context.Background())
	require.NoError(t, err)
	_, err = pB.Checkout(context.Background())
	require.NoError(t, err)

	pA.Release(connA)
	assert.Equal(t, 1, pA.State().NumIdle)
	assert.Equal(t, 0, pB.State().NumIdle, "releasing into pool A must not affect pool B")
}

func TestStatsTracksCheckoutsAndFailures(t *testing.T) {
	t.Parallel()

	p := New("id", 1, false, func(ctx context.Context) (driver.Connection, error) {
		return &fakeConn{}, nil
	}, zap.NewNop())
	p.checkoutTimeout = 50 * time.Millisecond

	conn, err := p.Checkout(context.Background())
	require.NoError(t, err)

	_, err = p.Checkout(context.Background())
	require.Error(t, err)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.CheckoutsTotal)
	assert.Equal(t, uint64(1), stats.CheckoutFailuresTotal)

	p.Release(conn)
}

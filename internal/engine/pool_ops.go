package engine

import (
	"context"
	"os"

	"github.com/cesarcarlos/odbcengine/internal/cache"
	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/pool"
	"github.com/cesarcarlos/odbcengine/internal/registry"
)

// PoolCreate creates a new fixed-size connection pool for connStr (spec
// §6.1 "pool_create"). test_on_check_out resolves from the connection
// string's own key, falling back to ODBC_POOL_TEST_ON_CHECKOUT, falling
// back to true (spec §4.12); the recognized key is stripped before the
// string reaches the driver factory.
func (e *Engine) PoolCreate(connStr string, maxSize int) (uint32, error) {
	if connStr == "" {
		return 0, e.recordError(0, odbcerr.ErrEmptyConnectionString)
	}

	name, _ := driver.DetectDriver(connStr)
	plugin := driver.PluginForDriver(name)
	identity := pool.ExtractIdentity(connStr)
	testOnCheckout := lookupTestOnCheckout(connStr)
	driverConnStr := pool.StripKeys(connStr, pool.TestOnCheckoutKeys...)

	factory := func(ctx context.Context) (driver.Connection, error) {
		return e.opener(ctx, driverConnStr)
	}
	p := pool.New(identity, maxSize, testOnCheckout, factory, e.l)

	poolID, err := e.reg.RegisterPool(p, plugin, pool.Sanitize(driverConnStr))
	if err != nil {
		return 0, e.recordError(0, err)
	}
	return poolID, nil
}

// lookupTestOnCheckout resolves test_on_check_out for connStr (spec
// §4.12): the connection string's value wins if one of its six
// recognized key aliases carries a value the spec's boolean grammar
// recognizes (1/true/yes/on, 0/false/no/off, case-insensitive);
// otherwise ODBC_POOL_TEST_ON_CHECKOUT is consulted under the same
// grammar; otherwise it defaults to true.
func lookupTestOnCheckout(connStr string) bool {
	opts := pool.ParseConnString(connStr)
	for _, key := range pool.TestOnCheckoutKeys {
		v, ok := pool.Lookup(opts, key)
		if !ok {
			continue
		}
		if b, recognized := pool.ParseBoolOption(v); recognized {
			return b
		}
	}
	if v, ok := os.LookupEnv(pool.TestOnCheckoutEnvVar); ok {
		if b, recognized := pool.ParseBoolOption(v); recognized {
			return b
		}
	}
	return true
}

// PoolGetConnection checks out a connection from poolID and wraps it in
// a pooled-connection handle whose ID is valid anywhere a conn_id is
// accepted (prepare, execute, transactions, ...) for as long as it's
// checked out (spec §6.1 "pool_get_connection"). Unlike Connect, the
// checked-out connection is never registered in the direct-connection
// ID space: its only address is the pooled-connection ID, so releasing
// it back to the pool can't be bypassed by a caller still holding the
// old conn_id.
func (e *Engine) PoolGetConnection(ctx context.Context, poolID uint32) (uint32, error) {
	ph, err := e.reg.PoolByID(poolID)
	if err != nil {
		return 0, e.recordError(0, err)
	}

	conn, err := ph.Pool.Checkout(ctx)
	if err != nil {
		return 0, e.recordError(0, err)
	}

	ch := &registry.ConnHandle{
		Conn:    conn,
		ConnStr: ph.ConnStr,
		Plugin:  ph.Plugin,
		Cache:   cache.New(e.cacheSize),
		StmtIDs: make(map[uint32]bool),
	}

	pooledID, err := e.reg.AcquirePooledConn(poolID, ch)
	if err != nil {
		ph.Pool.Release(conn)
		return 0, e.recordError(0, err)
	}
	ch.ID = pooledID
	return pooledID, nil
}

// PoolReleaseConnection returns a pooled connection ID to its owning
// pool, closing any still-active transaction and prepared statements
// first (spec §6.1 "pool_release_connection").
func (e *Engine) PoolReleaseConnection(ctx context.Context, pooledConnID uint32) error {
	pc, err := e.reg.PooledConnByID(pooledConnID)
	if err != nil {
		return e.recordError(0, err)
	}
	if pc.Conn.Txn != nil {
		pc.Conn.Txn.DropIfActive(ctx)
	}

	p, connHandle, err := e.reg.ReleasePooledConn(pooledConnID)
	if err != nil {
		return e.recordError(0, err)
	}
	p.Release(connHandle.Conn)
	return nil
}

// PoolHealthCheck probes one idle connection in poolID without removing
// it from rotation (spec §6.1 "pool_health_check").
func (e *Engine) PoolHealthCheck(ctx context.Context, poolID uint32) error {
	ph, err := e.reg.PoolByID(poolID)
	if err != nil {
		return e.recordError(0, err)
	}
	return e.recordError(0, ph.Pool.HealthCheck(ctx))
}

// PoolState is poolID's occupancy snapshot, supplemented with lifetime
// checkout counters (spec §6.1 "pool_get_state"; spec §C.5 "pool health
// snapshot").
type PoolState struct {
	Size                  int
	Idle                  int
	CheckoutsTotal        uint64
	CheckoutFailuresTotal uint64
}

// PoolGetState returns poolID's current size/idle counts plus its
// lifetime checkouts_total/checkout_failures_total (spec §6.1
// "pool_get_state", §C.5).
func (e *Engine) PoolGetState(poolID uint32) (PoolState, error) {
	ph, err := e.reg.PoolByID(poolID)
	if err != nil {
		return PoolState{}, e.recordError(0, err)
	}
	st := ph.Pool.State()
	stats := ph.Pool.Stats()
	return PoolState{
		Size:                  st.NumOpen,
		Idle:                  st.NumIdle,
		CheckoutsTotal:        stats.CheckoutsTotal,
		CheckoutFailuresTotal: stats.CheckoutFailuresTotal,
	}, nil
}

// PoolClose tears down poolID and every pooled-connection handle
// referencing it (spec §6.1 "pool_close").
func (e *Engine) PoolClose(poolID uint32) error {
	return e.recordError(0, e.reg.ClosePool(poolID))
}

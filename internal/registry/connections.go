package registry

import (
	"context"
	"sync/atomic"

	"github.com/cesarcarlos/odbcengine/internal/cache"
	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/txn"
)

// ConnHandle is one registered connection and everything scoped to it:
// the sanitized connection string it was opened with, the driver plugin
// selected for it, its own prepared-statement cache, and at most one
// active transaction (spec §4.12: a connection has zero or one open
// transaction at a time).
type ConnHandle struct {
	ID      uint32
	Conn    driver.Connection
	ConnStr string
	Plugin  driver.DriverPlugin
	Cache   *cache.Cache
	Txn     *txn.Transaction
	StmtIDs map[uint32]bool

	queryCount atomic.Uint64
	errorCount atomic.Uint64
}

// RecordQuery tallies one query's outcome against this connection's own
// counters (spec §C.3: "connection-level statistics").
func (h *ConnHandle) RecordQuery(failed bool) {
	h.queryCount.Add(1)
	if failed {
		h.errorCount.Add(1)
	}
}

// RegisterConnection adds a freshly-opened driver.Connection to the
// registry and returns its handle ID. cacheSize sizes the per-connection
// prepared-statement cache (spec §4.8: the cache is connection-scoped).
func (r *Registry) RegisterConnection(conn driver.Connection, connStr string, plugin driver.DriverPlugin, cacheSize int) (uint32, error) {
	return withLock(r, func() (uint32, error) {
		id := r.nextConnID
		r.nextConnID++
		r.connections[id] = &ConnHandle{
			ID:      id,
			Conn:    conn,
			ConnStr: connStr,
			Plugin:  plugin,
			Cache:   cache.New(cacheSize),
			StmtIDs: make(map[uint32]bool),
		}
		return id, nil
	})
}

// Connection looks up a connection handle, or returns KindInvalidHandle.
// IDs from the pooled-connection ID space (spec §4.14) resolve
// transparently to the ConnHandle wrapped by that pooled handle, so
// prepare/execute/transaction calls work the same whether conn_id names
// a direct connection or a checked-out pooled one.
func (r *Registry) Connection(id uint32) (*ConnHandle, error) {
	return withLock(r, func() (*ConnHandle, error) {
		return r.connHandleLocked(id)
	})
}

// connHandleLocked resolves id against both the direct-connection and
// pooled-connection maps. Callers must hold r.mu.
func (r *Registry) connHandleLocked(id uint32) (*ConnHandle, error) {
	if h, ok := r.connections[id]; ok {
		return h, nil
	}
	if pc, ok := r.pooledConns[id]; ok {
		return pc.Conn, nil
	}
	return nil, odbcerr.NewInvalidHandle(id)
}

// Disconnect closes and removes a connection, cascading to any open
// transaction (auto-rolled-back with a warning, per txn.DropIfActive)
// and any statement handles bound to it.
func (r *Registry) Disconnect(ctx context.Context, id uint32) error {
	return withLockErr(r, func() error {
		h, ok := r.connections[id]
		if !ok {
			return odbcerr.NewInvalidHandle(id)
		}
		if h.Txn != nil {
			h.Txn.DropIfActive(ctx)
		}
		for stmtID := range h.StmtIDs {
			delete(r.statements, stmtID)
		}
		delete(r.connErrors, id)
		delete(r.connections, id)
		return h.Conn.Close()
	})
}

// SetTransaction attaches t as id's active transaction. Attaching while
// one is already active is a validation error (spec §4.12: at most one
// open transaction per connection).
func (r *Registry) SetTransaction(connID uint32, t *txn.Transaction) error {
	return withLockErr(r, func() error {
		h, err := r.connHandleLocked(connID)
		if err != nil {
			return err
		}
		if h.Txn != nil && h.Txn.State() == txn.StateActive {
			return odbcerr.NewValidation("connection already has an active transaction")
		}
		h.Txn = t
		return nil
	})
}

// Transaction returns connID's active transaction, if any.
func (r *Registry) Transaction(connID uint32) (*txn.Transaction, error) {
	return withLock(r, func() (*txn.Transaction, error) {
		h, err := r.connHandleLocked(connID)
		if err != nil {
			return nil, err
		}
		if h.Txn == nil {
			return nil, odbcerr.NewValidation("connection has no active transaction")
		}
		return h.Txn, nil
	})
}

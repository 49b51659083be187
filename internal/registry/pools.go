package registry

import (
	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/pool"
)

// PoolHandle is a registered connection pool and the driver plugin used
// to build pooled connection handles around whatever it checks out.
type PoolHandle struct {
	ID      uint32
	Pool    *pool.Pool
	Plugin  driver.DriverPlugin
	ConnStr string
}

// PooledConnHandle is one checked-out connection from a pool, addressed
// by its own ID space starting at pooledConnIDBase (spec §4.14).
type PooledConnHandle struct {
	ID     uint32
	PoolID uint32
	Conn   *ConnHandle
}

// RegisterPool adds a new pool and returns its handle ID.
func (r *Registry) RegisterPool(p *pool.Pool, plugin driver.DriverPlugin, connStr string) (uint32, error) {
	return withLock(r, func() (uint32, error) {
		id := r.nextPoolID
		r.nextPoolID++
		r.pools[id] = &PoolHandle{ID: id, Pool: p, Plugin: plugin, ConnStr: connStr}
		r.poolFreeList[id] = nil
		return id, nil
	})
}

// PoolByID returns the pool handle for id.
func (r *Registry) PoolByID(id uint32) (*PoolHandle, error) {
	return withLock(r, func() (*PoolHandle, error) {
		h, ok := r.pools[id]
		if !ok {
			return nil, odbcerr.NewInvalidHandle(id)
		}
		return h, nil
	})
}

// ClosePool tears down a pool and every pooled-connection handle
// referencing it.
func (r *Registry) ClosePool(id uint32) error {
	return withLockErr(r, func() error {
		h, ok := r.pools[id]
		if !ok {
			return odbcerr.NewInvalidHandle(id)
		}
		for pcID, pc := range r.pooledConns {
			if pc.PoolID == id {
				delete(r.pooledConns, pcID)
			}
		}
		delete(r.poolFreeList, id)
		delete(r.pools, id)
		return h.Pool.Close()
	})
}

// AcquirePooledConn wraps a freshly checked-out connection in a
// PooledConnHandle, reusing an ID from poolID's free list when one is
// available rather than always minting a new one (spec §4.14: pooled
// connection IDs are recycled through a free list).
func (r *Registry) AcquirePooledConn(poolID uint32, conn *ConnHandle) (uint32, error) {
	return withLock(r, func() (uint32, error) {
		if _, ok := r.pools[poolID]; !ok {
			return 0, odbcerr.NewInvalidHandle(poolID)
		}

		var id uint32
		if free := r.poolFreeList[poolID]; len(free) > 0 {
			id = free[len(free)-1]
			r.poolFreeList[poolID] = free[:len(free)-1]
		} else {
			id = r.nextPooledConnID
			r.nextPooledConnID++
		}

		r.pooledConns[id] = &PooledConnHandle{ID: id, PoolID: poolID, Conn: conn}
		return id, nil
	})
}

// PooledConnByID returns the pooled-connection handle for id.
func (r *Registry) PooledConnByID(id uint32) (*PooledConnHandle, error) {
	return withLock(r, func() (*PooledConnHandle, error) {
		h, ok := r.pooledConns[id]
		if !ok {
			return nil, odbcerr.NewInvalidHandle(id)
		}
		return h, nil
	})
}

// ReleasePooledConn removes the pooled-connection handle and every
// statement handle bound to it, and returns its ID to the owning pool's
// free list for reuse.
func (r *Registry) ReleasePooledConn(id uint32) (*pool.Pool, *ConnHandle, error) {
	type result struct {
		p    *pool.Pool
		conn *ConnHandle
	}
	res, err := withLock(r, func() (result, error) {
		pc, ok := r.pooledConns[id]
		if !ok {
			return result{}, odbcerr.NewInvalidHandle(id)
		}
		ph, ok := r.pools[pc.PoolID]
		if !ok {
			return result{}, odbcerr.NewInvalidHandle(pc.PoolID)
		}
		for stmtID := range pc.Conn.StmtIDs {
			delete(r.statements, stmtID)
		}
		pc.Conn.StmtIDs = make(map[uint32]bool)
		delete(r.pooledConns, id)
		r.poolFreeList[pc.PoolID] = append(r.poolFreeList[pc.PoolID], id)
		return result{p: ph.Pool, conn: pc.Conn}, nil
	})
	return res.p, res.conn, err
}

package registry

import (
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// StmtHandle records the metadata a prepared-statement handle needs.
// The driver itself re-prepares on every execute (spec §3: the cache
// tracks fingerprints, not live driver statement objects), so this is
// metadata only, not a cached driver.Statement.
type StmtHandle struct {
	ID         uint32
	ConnID     uint32
	SQL        string
	TimeoutSec int
}

// Prepare registers a new statement handle bound to connID.
func (r *Registry) Prepare(connID uint32, sql string, timeoutSec int) (uint32, error) {
	return withLock(r, func() (uint32, error) {
		conn, err := r.connHandleLocked(connID)
		if err != nil {
			return 0, err
		}
		id := r.nextStmtID
		r.nextStmtID++
		r.statements[id] = &StmtHandle{ID: id, ConnID: connID, SQL: sql, TimeoutSec: timeoutSec}
		conn.StmtIDs[id] = true
		return id, nil
	})
}

// Statement looks up a statement handle.
func (r *Registry) Statement(id uint32) (*StmtHandle, error) {
	return withLock(r, func() (*StmtHandle, error) {
		h, ok := r.statements[id]
		if !ok {
			return nil, odbcerr.NewInvalidHandle(id)
		}
		return h, nil
	})
}

// CloseStatement removes one statement handle.
func (r *Registry) CloseStatement(id uint32) error {
	return withLockErr(r, func() error {
		h, ok := r.statements[id]
		if !ok {
			return odbcerr.NewInvalidHandle(id)
		}
		if conn, ok := r.connections[h.ConnID]; ok {
			delete(conn.StmtIDs, id)
		}
		delete(r.statements, id)
		return nil
	})
}

// ClearAllStatements drops every statement handle bound to connID,
// leaving the connection itself open (spec §6.1: clear_all_statements).
func (r *Registry) ClearAllStatements(connID uint32) (int, error) {
	return withLock(r, func() (int, error) {
		conn, ok := r.connections[connID]
		if !ok {
			return 0, odbcerr.NewInvalidHandle(connID)
		}
		n := len(conn.StmtIDs)
		for stmtID := range conn.StmtIDs {
			delete(r.statements, stmtID)
		}
		conn.StmtIDs = make(map[uint32]bool)
		return n, nil
	})
}

// Package txn implements transaction and savepoint control (spec §4.12,
// §C.4): a small state machine layered directly on a driver.Connection,
// grounded on FerretDB's session-scoped state objects (internal/clientconn
// session handling) in its use of an explicit state field guarded by a
// mutex rather than relying on the driver to reject illegal transitions.
package txn

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// Isolation is a SQL-92 isolation level.
type Isolation int

const (
	ReadUncommitted Isolation = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

// SQL renders the isolation level as the SET TRANSACTION ISOLATION LEVEL
// suffix text (spec §4.12: "SQL-92 isolation level SQL text").
func (i Isolation) SQL() string {
	switch i {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "READ COMMITTED"
	}
}

// State is the transaction's lifecycle state.
type State int

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
)

// Transaction is bound to one connection ID and driver.Connection for its
// entire lifetime (spec §4.12: "bound to a connection ID").
type Transaction struct {
	mu sync.Mutex

	connID    uint32
	conn      driver.Connection
	isolation Isolation
	state     State

	// savepoints tracks currently-active (not yet released or rolled back
	// past) savepoint names, to reject duplicate creation per the
	// duplicate-savepoint-name Open Question resolution (SPEC_FULL.md §D).
	savepoints map[string]bool

	l *zap.Logger
}

// Begin starts a new transaction on conn: sets the isolation level and
// switches the connection to manual-commit mode.
func Begin(ctx context.Context, connID uint32, conn driver.Connection, isolation Isolation, l *zap.Logger) (*Transaction, error) {
	if err := conn.ExecDirect(ctx, "SET TRANSACTION ISOLATION LEVEL "+isolation.SQL()); err != nil {
		return nil, odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("begin transaction: set isolation level: %v", err))
	}
	if err := conn.SetAutocommit(false); err != nil {
		return nil, odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("begin transaction: disable autocommit: %v", err))
	}
	return &Transaction{
		connID:     connID,
		conn:       conn,
		isolation:  isolation,
		state:      StateActive,
		savepoints: make(map[string]bool),
		l:          l,
	}, nil
}

// ConnID returns the connection this transaction is bound to.
func (t *Transaction) ConnID() uint32 {
	return t.connID
}

// State returns the current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Commit ends the transaction via the driver's SQLEndTran equivalent and
// restores autocommit mode. Calling Commit on a non-active transaction is
// a validation error.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateActive {
		return odbcerr.NewValidation("transaction is not active")
	}
	if err := t.conn.EndTran(ctx, true); err != nil {
		return odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("commit: %v", err))
	}
	if err := t.conn.SetAutocommit(true); err != nil {
		t.l.Warn("failed to restore autocommit after commit", zap.Uint32("conn_id", t.connID), zap.Error(err))
	}
	t.state = StateCommitted
	t.savepoints = nil
	return nil
}

// Rollback ends the transaction via SQLEndTran(rollback) and restores
// autocommit mode.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateActive {
		return odbcerr.NewValidation("transaction is not active")
	}
	if err := t.conn.EndTran(ctx, false); err != nil {
		return odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("rollback: %v", err))
	}
	if err := t.conn.SetAutocommit(true); err != nil {
		t.l.Warn("failed to restore autocommit after rollback", zap.Uint32("conn_id", t.connID), zap.Error(err))
	}
	t.state = StateRolledBack
	t.savepoints = nil
	return nil
}

// DropIfActive is called when a connection is disconnected, or a pooled
// connection is released, out from under an active transaction. A dangling
// active transaction is rolled back best-effort and logged, mirroring
// the spec's "drop-time auto-rollback with warning log" behavior.
func (t *Transaction) DropIfActive(ctx context.Context) {
	t.mu.Lock()
	active := t.state == StateActive
	t.mu.Unlock()

	if !active {
		return
	}
	t.l.Warn("transaction dropped while still active; rolling back", zap.Uint32("conn_id", t.connID))
	if err := t.Rollback(ctx); err != nil {
		t.l.Error("auto-rollback on drop failed", zap.Uint32("conn_id", t.connID), zap.Error(err))
	}
}

// CreateSavepoint issues SAVEPOINT name. Re-using an already-active name
// is rejected with a validation error (spec's Open Question resolution:
// duplicate savepoint names are rejected, not silently reassigned).
func (t *Transaction) CreateSavepoint(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateActive {
		return odbcerr.NewValidation("transaction is not active")
	}
	if t.savepoints[name] {
		return odbcerr.NewValidation(fmt.Sprintf("savepoint %q already exists", name))
	}
	if err := t.conn.ExecDirect(ctx, "SAVEPOINT "+name); err != nil {
		return odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("create savepoint: %v", err))
	}
	t.savepoints[name] = true
	return nil
}

// RollbackToSavepoint issues ROLLBACK TO SAVEPOINT name. The savepoint
// remains active afterward (per SQL-92, a rollback-to does not release).
func (t *Transaction) RollbackToSavepoint(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateActive {
		return odbcerr.NewValidation("transaction is not active")
	}
	if !t.savepoints[name] {
		return odbcerr.NewValidation(fmt.Sprintf("unknown savepoint %q", name))
	}
	if err := t.conn.ExecDirect(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("rollback to savepoint: %v", err))
	}
	return nil
}

// ReleaseSavepoint issues RELEASE SAVEPOINT name and frees the name for
// reuse.
func (t *Transaction) ReleaseSavepoint(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateActive {
		return odbcerr.NewValidation("transaction is not active")
	}
	if !t.savepoints[name] {
		return odbcerr.NewValidation(fmt.Sprintf("unknown savepoint %q", name))
	}
	if err := t.conn.ExecDirect(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("release savepoint: %v", err))
	}
	delete(t.savepoints, name)
	return nil
}

package engine

import (
	"context"

	"github.com/cesarcarlos/odbcengine/internal/txn"
)

// TransactionBegin starts a new transaction on connID at the given
// isolation level and attaches it to the connection (spec §6.1
// "transaction_begin").
func (e *Engine) TransactionBegin(ctx context.Context, connID uint32, isolation txn.Isolation) error {
	h, err := e.reg.Connection(connID)
	if err != nil {
		return e.recordError(connID, err)
	}

	t, err := txn.Begin(ctx, connID, h.Conn, isolation, e.l)
	if err != nil {
		return e.recordError(connID, err)
	}
	if err := e.reg.SetTransaction(connID, t); err != nil {
		_ = t.Rollback(ctx)
		return e.recordError(connID, err)
	}
	return nil
}

// TransactionCommit commits connID's active transaction (spec §6.1
// "transaction_commit").
func (e *Engine) TransactionCommit(ctx context.Context, connID uint32) error {
	t, err := e.reg.Transaction(connID)
	if err != nil {
		return e.recordError(connID, err)
	}
	return e.recordError(connID, t.Commit(ctx))
}

// TransactionRollback rolls back connID's active transaction (spec §6.1
// "transaction_rollback").
func (e *Engine) TransactionRollback(ctx context.Context, connID uint32) error {
	t, err := e.reg.Transaction(connID)
	if err != nil {
		return e.recordError(connID, err)
	}
	return e.recordError(connID, t.Rollback(ctx))
}

// SavepointCreate issues SAVEPOINT name inside connID's active
// transaction (spec §6.1 "savepoint_create").
func (e *Engine) SavepointCreate(ctx context.Context, connID uint32, name string) error {
	t, err := e.reg.Transaction(connID)
	if err != nil {
		return e.recordError(connID, err)
	}
	return e.recordError(connID, t.CreateSavepoint(ctx, name))
}

// SavepointRollback issues ROLLBACK TO SAVEPOINT name (spec §6.1
// "savepoint_rollback").
func (e *Engine) SavepointRollback(ctx context.Context, connID uint32, name string) error {
	t, err := e.reg.Transaction(connID)
	if err != nil {
		return e.recordError(connID, err)
	}
	return e.recordError(connID, t.RollbackToSavepoint(ctx, name))
}

// SavepointRelease issues RELEASE SAVEPOINT name (spec §6.1
// "savepoint_release").
func (e *Engine) SavepointRelease(ctx context.Context, connID uint32, name string) error {
	t, err := e.reg.Transaction(connID)
	if err != nil {
		return e.recordError(connID, err)
	}
	return e.recordError(connID, t.ReleaseSavepoint(ctx, name))
}

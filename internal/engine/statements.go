package engine

import (
	"context"
	"time"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/pipeline"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// Prepare registers a new statement handle bound to connID (spec §6.1
// "prepare"). The driver itself re-prepares on every execute; this only
// records the (connection, SQL, timeout) triple.
func (e *Engine) Prepare(connID uint32, sql string, timeoutSec int) (uint32, error) {
	stmtID, err := e.reg.Prepare(connID, sql, timeoutSec)
	if err != nil {
		return 0, e.recordError(connID, err)
	}
	return stmtID, nil
}

// ExecuteResult is the outcome of Execute: exactly one of ResultSet or
// RowsAffected is meaningful, selected by HasResultSet.
type ExecuteResult struct {
	HasResultSet bool
	ResultSet    []byte // protocol v1-encoded, when HasResultSet
	RowsAffected int64
}

// Execute runs stmtID with the given bound parameters (spec §6.1
// "execute"). timeoutOverrideSec, if positive, overrides the timeout
// recorded at Prepare time. fetchSize is accepted for ABI-shape parity
// with spec §6.1 but is not yet threaded through to the generic
// database/sql adapter (internal/drivers/sqldriver), which has no
// driver-agnostic row-prefetch-size API; see DESIGN.md.
func (e *Engine) Execute(ctx context.Context, stmtID uint32, params []protocol.ParamValue, timeoutOverrideSec int, fetchSize int) (ExecuteResult, error) {
	start := time.Now()

	sh, err := e.reg.Statement(stmtID)
	if err != nil {
		return ExecuteResult{}, e.recordError(0, err)
	}
	ch, err := e.reg.Connection(sh.ConnID)
	if err != nil {
		return ExecuteResult{}, e.recordError(sh.ConnID, err)
	}

	timeoutSec := sh.TimeoutSec
	if timeoutOverrideSec > 0 {
		timeoutSec = timeoutOverrideSec
	}

	result, err := pipeline.ExecuteQueryWithParamsAndTimeout(ctx, ch.Conn, pluginFor(ch), ch.Cache, sh.SQL, params, timeoutSec)
	e.recordQuery(ch, start, err)
	e.span(ctx, "execute", map[string]string{"stmt_id": fmtUint(stmtID)}, err)
	if err != nil {
		return ExecuteResult{}, e.recordError(sh.ConnID, err)
	}

	if !result.HasResultSet {
		return ExecuteResult{RowsAffected: result.RowsAffected}, nil
	}
	return ExecuteResult{HasResultSet: true, ResultSet: protocol.EncodeV1(result.Rows)}, nil
}

// CloseStatement removes stmtID's handle (spec §6.1 "close_statement").
func (e *Engine) CloseStatement(stmtID uint32) error {
	return e.recordError(0, e.reg.CloseStatement(stmtID))
}

// ClearAllStatements drops every statement handle bound to connID (spec
// §6.1 "clear_all_statements").
func (e *Engine) ClearAllStatements(connID uint32) (int, error) {
	n, err := e.reg.ClearAllStatements(connID)
	if err != nil {
		return 0, e.recordError(connID, err)
	}
	return n, nil
}

// Cancel always fails with UnsupportedFeature: asynchronous cancellation
// of an in-flight driver call is an explicit non-feature (spec §1, §6.1
// "cancel").
func (e *Engine) Cancel(stmtID uint32) error {
	return e.recordError(0, odbcerr.NewUnsupported("cancel is not supported: no asynchronous cancellation of an in-flight driver call"))
}

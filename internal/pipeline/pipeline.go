package pipeline

import (
	"context"
	"fmt"

	"github.com/cesarcarlos/odbcengine/internal/cache"
	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// MaxTextualParams is the spec §4.9 ceiling on parameters bound through
// the textual-conversion path of ExecuteQueryWithParamsAndTimeout.
const MaxTextualParams = 5

// Result is the outcome of one non-multi-result query execution:
// exactly one of Rows or RowsAffected is meaningful, selected by
// HasResultSet.
type Result struct {
	HasResultSet bool
	Rows         *protocol.RowBuffer
	RowsAffected int64
}

// ExecuteQuery runs sql with no parameters through the prepared-statement
// cache, the driver plugin's textual optimization, and the cell reader
// (spec §4.6, §4.9).
func ExecuteQuery(ctx context.Context, conn driver.Connection, plugin driver.DriverPlugin, stmtCache *cache.Cache, sql string) (Result, error) {
	return execute(ctx, conn, plugin, stmtCache, sql, nil, 0, 0)
}

// ExecuteQueryWithParamsAndTimeout runs sql with up to MaxTextualParams
// bound parameters and an optional statement timeout. Binding more than
// MaxTextualParams non-null parameters is a validation error; a NULL
// parameter is rejected outright in the textual binding path (spec
// §4.9: "NULL-rejection in textual path").
func ExecuteQueryWithParamsAndTimeout(ctx context.Context, conn driver.Connection, plugin driver.DriverPlugin, stmtCache *cache.Cache, sql string, params []protocol.ParamValue, timeoutSec int) (Result, error) {
	if len(params) > MaxTextualParams {
		return Result{}, odbcerr.NewValidation(fmt.Sprintf("too many parameters: got %d, textual binding supports at most %d", len(params), MaxTextualParams))
	}
	for i, p := range params {
		if p.Kind == protocol.ParamNull {
			return Result{}, odbcerr.NewValidation(fmt.Sprintf("parameter %d: NULL is not supported by textual binding", i))
		}
	}
	return execute(ctx, conn, plugin, stmtCache, sql, params, timeoutSec, 0)
}

func execute(ctx context.Context, conn driver.Connection, plugin driver.DriverPlugin, stmtCache *cache.Cache, sql string, params []protocol.ParamValue, timeoutSec int, fetchSize int) (Result, error) {
	if plugin == nil {
		plugin = driver.NoopPlugin()
	}

	stmtCache.GetOrInsert(sql)
	optimized := plugin.OptimizeQuery(sql)

	stmt, err := conn.Prepare(ctx, optimized)
	if err != nil {
		return Result{}, odbcerr.New(odbcerr.KindOdbcAPI, "prepare: "+err.Error())
	}
	defer stmt.Close()

	cursor, hasCursor, rowsAffected, err := stmt.Execute(ctx, params, timeoutSec, fetchSize)
	if err != nil {
		return Result{}, odbcerr.New(odbcerr.KindOdbcAPI, "execute: "+err.Error())
	}
	stmtCache.RecordExecution(sql)

	if !hasCursor {
		return Result{RowsAffected: rowsAffected}, nil
	}
	defer cursor.Close()

	buf, err := drainCursor(ctx, cursor, plugin)
	if err != nil {
		return Result{}, err
	}
	return Result{HasResultSet: true, Rows: buf}, nil
}

// drainCursor reads every remaining row of one result set into a RowBuffer,
// mapping each column's driver type through plugin.MapType.
func drainCursor(ctx context.Context, cursor driver.Cursor, plugin driver.DriverPlugin) (*protocol.RowBuffer, error) {
	meta, err := cursor.Columns()
	if err != nil {
		return nil, odbcerr.New(odbcerr.KindOdbcAPI, "read columns: "+err.Error())
	}

	columns := make([]protocol.Column, len(meta))
	for i, m := range meta {
		columns[i] = protocol.Column{Name: m.Name, Type: plugin.MapType(m.RawType)}
	}

	buf := &protocol.RowBuffer{Columns: columns}
	for {
		more, err := cursor.Next(ctx)
		if err != nil {
			return nil, odbcerr.New(odbcerr.KindOdbcAPI, "fetch row: "+err.Error())
		}
		if !more {
			break
		}
		row, err := ReadRow(cursor, columns)
		if err != nil {
			return nil, odbcerr.New(odbcerr.KindOdbcAPI, "read row: "+err.Error())
		}
		buf.Rows = append(buf.Rows, row)
	}
	return buf, nil
}

// ExecuteMultiResult runs a statement that may produce several result
// sets and/or row counts in sequence (spec §4.9, §4.2 multi-result
// format), walking driver.Cursor.MoreResults until exhausted.
func ExecuteMultiResult(ctx context.Context, conn driver.Connection, plugin driver.DriverPlugin, stmtCache *cache.Cache, sql string) ([]protocol.MultiResultItem, error) {
	if plugin == nil {
		plugin = driver.NoopPlugin()
	}

	stmtCache.GetOrInsert(sql)
	optimized := plugin.OptimizeQuery(sql)

	stmt, err := conn.Prepare(ctx, optimized)
	if err != nil {
		return nil, odbcerr.New(odbcerr.KindOdbcAPI, "prepare: "+err.Error())
	}
	defer stmt.Close()

	cursor, hasCursor, _, err := stmt.Execute(ctx, nil, 0, 0)
	if err != nil {
		return nil, odbcerr.New(odbcerr.KindOdbcAPI, "execute: "+err.Error())
	}
	stmtCache.RecordExecution(sql)

	// Non-cursor steps always carry RowCount(0): no driver binding behind
	// this interface exposes a per-step row count here, so this is a
	// fixed placeholder rather than real data (spec §4.9 design notes —
	// preserve until a driver binding exposing row counts is introduced).
	var items []protocol.MultiResultItem
	for {
		if hasCursor {
			buf, err := drainCursor(ctx, cursor, plugin)
			if err != nil {
				cursor.Close()
				return nil, err
			}
			items = append(items, protocol.MultiResultItem{ResultSet: protocol.EncodeV1(buf)})
		} else {
			items = append(items, protocol.MultiResultItem{IsRowCount: true, RowCount: 0})
		}

		if cursor == nil {
			break
		}
		hasMore, nextHasCursor, _, err := cursor.MoreResults(ctx)
		if err != nil {
			cursor.Close()
			return nil, odbcerr.New(odbcerr.KindOdbcAPI, "advance result set: "+err.Error())
		}
		if !hasMore {
			cursor.Close()
			break
		}
		hasCursor = nextHasCursor
	}
	return items, nil
}

package engine

import (
	"context"
	"time"

	"github.com/cesarcarlos/odbcengine/internal/pipeline"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// ExecQuery runs sql against connID with no bound parameters (spec §6.1
// "exec_query").
func (e *Engine) ExecQuery(ctx context.Context, connID uint32, sql string) (ExecuteResult, error) {
	return e.execQuery(ctx, connID, sql, nil, 0)
}

// ExecQueryParams runs sql against connID with up to
// pipeline.MaxTextualParams bound parameters (spec §6.1
// "exec_query_params").
func (e *Engine) ExecQueryParams(ctx context.Context, connID uint32, sql string, params []protocol.ParamValue, timeoutSec int) (ExecuteResult, error) {
	return e.execQuery(ctx, connID, sql, params, timeoutSec)
}

func (e *Engine) execQuery(ctx context.Context, connID uint32, sql string, params []protocol.ParamValue, timeoutSec int) (ExecuteResult, error) {
	start := time.Now()

	ch, err := e.reg.Connection(connID)
	if err != nil {
		return ExecuteResult{}, e.recordError(connID, err)
	}

	result, err := pipeline.ExecuteQueryWithParamsAndTimeout(ctx, ch.Conn, pluginFor(ch), ch.Cache, sql, params, timeoutSec)
	e.recordQuery(ch, start, err)
	e.span(ctx, "exec_query", map[string]string{"conn_id": fmtUint(connID)}, err)
	if err != nil {
		return ExecuteResult{}, e.recordError(connID, err)
	}

	if !result.HasResultSet {
		return ExecuteResult{RowsAffected: result.RowsAffected}, nil
	}
	return ExecuteResult{HasResultSet: true, ResultSet: protocol.EncodeV1(result.Rows)}, nil
}

// ExecQueryMulti runs sql, which may produce several result sets and/or
// row counts in sequence, and returns the spec §4.4 multi-result wire
// encoding (spec §6.1 "exec_query_multi").
func (e *Engine) ExecQueryMulti(ctx context.Context, connID uint32, sql string) ([]byte, error) {
	start := time.Now()

	ch, err := e.reg.Connection(connID)
	if err != nil {
		return nil, e.recordError(connID, err)
	}

	items, err := pipeline.ExecuteMultiResult(ctx, ch.Conn, pluginFor(ch), ch.Cache, sql)
	e.recordQuery(ch, start, err)
	e.span(ctx, "exec_query_multi", map[string]string{"conn_id": fmtUint(connID)}, err)
	if err != nil {
		return nil, e.recordError(connID, err)
	}
	return protocol.EncodeMultiResult(items), nil
}

// CatalogTables executes the relevant INFORMATION_SCHEMA.TABLES query
// through the normal pipeline (spec §6.1 "catalog_tables"). catalog and
// schema are optional filters; empty strings mean "any".
func (e *Engine) CatalogTables(ctx context.Context, connID uint32, catalog, schema string) (ExecuteResult, error) {
	sql, params := buildCatalogTablesQuery(catalog, schema)
	return e.execQuery(ctx, connID, sql, params, 0)
}

func buildCatalogTablesQuery(catalog, schema string) (string, []protocol.ParamValue) {
	sql := "SELECT TABLE_CATALOG, TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE FROM INFORMATION_SCHEMA.TABLES WHERE 1=1"
	var params []protocol.ParamValue
	if catalog != "" {
		sql += " AND TABLE_CATALOG = ?"
		params = append(params, protocol.ParamValue{Kind: protocol.ParamString, Str: catalog})
	}
	if schema != "" {
		sql += " AND TABLE_SCHEMA = ?"
		params = append(params, protocol.ParamValue{Kind: protocol.ParamString, Str: schema})
	}
	return sql, params
}

// CatalogColumns executes the relevant INFORMATION_SCHEMA.COLUMNS query
// for one table (spec §6.1 "catalog_columns").
func (e *Engine) CatalogColumns(ctx context.Context, connID uint32, table string) (ExecuteResult, error) {
	sql := "SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, ORDINAL_POSITION FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = ?"
	params := []protocol.ParamValue{{Kind: protocol.ParamString, Str: table}}
	return e.execQuery(ctx, connID, sql, params, 0)
}

// CatalogTypeInfo reports the set of data types in use by the connected
// database (spec §6.1 "catalog_type_info"). There is no universal
// INFORMATION_SCHEMA table enumerating a driver's supported SQL types
// (unlike SQLGetTypeInfo in the real ODBC API this spec is modeled on),
// so this is approximated as the distinct DATA_TYPE values already
// reported by INFORMATION_SCHEMA.COLUMNS — documented in DESIGN.md as a
// best-effort stand-in, not a literal SQLGetTypeInfo equivalent.
func (e *Engine) CatalogTypeInfo(ctx context.Context, connID uint32) (ExecuteResult, error) {
	sql := "SELECT DISTINCT DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS"
	return e.execQuery(ctx, connID, sql, nil, 0)
}

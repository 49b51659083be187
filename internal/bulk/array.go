// Package bulk implements the array-binding bulk-insert engine and its
// pool-parallel variant (spec §4.11). Grounded on the teacher's
// (FerretDB) backends.InsertAll batch-write path in its "build one
// statement, bind a whole batch, execute, repeat" shape, generalized
// from row-major batches to the engine's columnar ColumnarInserter.
package bulk

import (
	"context"
	"fmt"
	"strings"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// Insert performs a columnar array-bound insert of payload through
// conn, chunking rows into groups of at most paramsetSize (floored at 1
// per spec §4.11) per driver execute call.
func Insert(ctx context.Context, conn driver.Connection, plugin driver.DriverPlugin, payload *protocol.BulkInsertPayload, paramsetSize int) (int64, error) {
	if plugin == nil {
		plugin = driver.NoopPlugin()
	}
	if !plugin.SupportsArrayBinding() {
		return 0, odbcerr.NewUnsupported(fmt.Sprintf("driver %q does not support array-bound insert", plugin.Name()))
	}
	if paramsetSize < 1 {
		paramsetSize = 1
	}
	if payload.RowCount == 0 {
		return 0, nil
	}

	sql := buildInsertSQL(plugin, payload)
	stmt, err := conn.Prepare(ctx, sql)
	if err != nil {
		return 0, odbcerr.New(odbcerr.KindOdbcAPI, "prepare bulk insert: "+err.Error())
	}
	defer stmt.Close()

	inserter, err := stmt.BindColumnar(paramsetSize, payload.Columns)
	if err != nil {
		return 0, odbcerr.New(odbcerr.KindOdbcAPI, "bind columnar insert: "+err.Error())
	}
	defer inserter.Close()

	var total int64
	for start := 0; start < payload.RowCount; start += paramsetSize {
		end := start + paramsetSize
		if end > payload.RowCount {
			end = payload.RowCount
		}
		n := end - start

		if err := inserter.SetRowCount(n); err != nil {
			return total, odbcerr.New(odbcerr.KindOdbcAPI, "set row count: "+err.Error())
		}
		if err := fillChunk(inserter, payload, start, n); err != nil {
			return total, err
		}

		rowsInserted, err := inserter.Execute(ctx)
		if err != nil {
			return total, odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("execute bulk insert chunk [%d,%d): %v", start, end, err))
		}
		total += rowsInserted
	}

	return total, nil
}

// fillChunk copies rows [start, start+n) of payload's columnar data into
// inserter, honoring each column's null bitmap.
func fillChunk(inserter driver.ColumnarInserter, payload *protocol.BulkInsertPayload, start, n int) error {
	for ci, col := range payload.Columns {
		data := payload.Data[ci]
		for r := 0; r < n; r++ {
			row := start + r
			isNull := col.Nullable && data.Nulls[row]

			var err error
			switch col.Type {
			case protocol.BulkI32:
				err = inserter.SetInt32(ci, r, data.I32s[row], isNull)
			case protocol.BulkI64:
				err = inserter.SetInt64(ci, r, data.I64s[row], isNull)
			case protocol.BulkText, protocol.BulkDecimal:
				err = inserter.SetText(ci, r, data.Texts[row], isNull)
			case protocol.BulkBinary:
				err = inserter.SetBinary(ci, r, data.Binaries[row], isNull)
			case protocol.BulkTimestamp:
				err = inserter.SetTimestamp(ci, r, data.Timestamps[row], isNull)
			default:
				err = fmt.Errorf("bulk: unknown column type %d", col.Type)
			}
			if err != nil {
				return odbcerr.New(odbcerr.KindOdbcAPI, fmt.Sprintf("bind column %q row %d: %v", col.Name, row, err))
			}
		}
	}
	return nil
}

// buildInsertSQL renders "INSERT INTO <table> (<cols>) VALUES (<?,...>)"
// using the driver plugin's identifier quoting (spec §4.11, §C.1).
func buildInsertSQL(plugin driver.DriverPlugin, payload *protocol.BulkInsertPayload) string {
	names := make([]string, len(payload.Columns))
	placeholders := make([]string, len(payload.Columns))
	for i, col := range payload.Columns {
		names[i] = plugin.QuoteIdentifier(col.Name)
		placeholders[i] = plugin.Placeholder(i)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		plugin.QuoteIdentifier(payload.Table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

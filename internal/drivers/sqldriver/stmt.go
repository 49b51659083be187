package sqldriver

import (
	"context"
	"database/sql"
	"time"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// Stmt is the driver.Statement backed by a *sql.Stmt.
type Stmt struct {
	db   *sql.DB
	stmt *sql.Stmt
	sql  string
}

func (s *Stmt) NumParams() int { return -1 }

func (s *Stmt) Execute(ctx context.Context, params []protocol.ParamValue, timeoutSec int, fetchSize int) (driver.Cursor, bool, int64, error) {
	args := paramsToArgs(params)

	var cancel context.CancelFunc
	if timeoutSec > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	}

	if looksLikeQuery(s.sql) {
		rows, err := s.stmt.QueryContext(ctx, args...)
		if err != nil {
			if cancel != nil {
				cancel()
			}
			return nil, false, 0, err
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			if cancel != nil {
				cancel()
			}
			return nil, false, 0, err
		}
		types, _ := rows.ColumnTypes()
		return newCursor(rows, cols, types, cancel), true, 0, nil
	}

	res, err := s.stmt.ExecContext(ctx, args...)
	if cancel != nil {
		cancel()
	}
	if err != nil {
		return nil, false, 0, err
	}
	n, _ := res.RowsAffected()
	return nil, false, n, nil
}

func (s *Stmt) BindColumnar(capacity int, specs []protocol.BulkColumnSpec) (driver.ColumnarInserter, error) {
	return newColumnarInserter(s.db, s.sql, specs, capacity), nil
}

func (s *Stmt) Close() error { return s.stmt.Close() }

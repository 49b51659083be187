package sqldriver

import (
	"context"
	"database/sql"
	"time"

	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// ColumnarInserter buffers up to capacity rows in memory, then executes
// one INSERT per row inside Execute (see package doc for why a true
// native array bind isn't available through database/sql).
type ColumnarInserter struct {
	db        *sql.DB
	insertSQL string
	specs     []protocol.BulkColumnSpec
	rowCount  int
	rows      [][]any
}

func newColumnarInserter(db *sql.DB, insertSQL string, specs []protocol.BulkColumnSpec, capacity int) *ColumnarInserter {
	if capacity < 1 {
		capacity = 1
	}
	rows := make([][]any, capacity)
	for i := range rows {
		rows[i] = make([]any, len(specs))
	}
	return &ColumnarInserter{db: db, insertSQL: insertSQL, specs: specs, rows: rows}
}

func (c *ColumnarInserter) SetRowCount(n int) error {
	c.rowCount = n
	return nil
}

func (c *ColumnarInserter) SetInt32(col, row int, v int32, isNull bool) error {
	c.rows[row][col] = valueOrNil(isNull, v)
	return nil
}

func (c *ColumnarInserter) SetInt64(col, row int, v int64, isNull bool) error {
	c.rows[row][col] = valueOrNil(isNull, v)
	return nil
}

func (c *ColumnarInserter) SetText(col, row int, v []byte, isNull bool) error {
	c.rows[row][col] = valueOrNil(isNull, string(v))
	return nil
}

func (c *ColumnarInserter) SetBinary(col, row int, v []byte, isNull bool) error {
	c.rows[row][col] = valueOrNil(isNull, v)
	return nil
}

func (c *ColumnarInserter) SetTimestamp(col, row int, v protocol.Timestamp, isNull bool) error {
	t := time.Date(int(v.Year), time.Month(v.Month), int(v.Day), int(v.Hour), int(v.Minute), int(v.Second), int(v.Fraction), time.UTC)
	c.rows[row][col] = valueOrNil(isNull, t)
	return nil
}

func valueOrNil(isNull bool, v any) any {
	if isNull {
		return nil
	}
	return v
}

func (c *ColumnarInserter) Execute(ctx context.Context) (int64, error) {
	var total int64
	for r := 0; r < c.rowCount; r++ {
		res, err := c.db.ExecContext(ctx, c.insertSQL, c.rows[r]...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (c *ColumnarInserter) Close() error { return nil }

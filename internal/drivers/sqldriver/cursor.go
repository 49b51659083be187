package sqldriver

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cesarcarlos/odbcengine/internal/driver"
)

// Cursor adapts *sql.Rows to driver.Cursor, scanning every column as a
// nullable string/byte pair up front for the current row (spec §4.7's
// cell reader then normalizes integer columns from that text form).
type Cursor struct {
	rows    *sql.Rows
	columns []driver.ColumnMeta
	cancel  context.CancelFunc

	current []sql.RawBytes
	isNull  []bool
}

func newCursor(rows *sql.Rows, names []string, types []*sql.ColumnType, cancel context.CancelFunc) *Cursor {
	meta := make([]driver.ColumnMeta, len(names))
	for i, name := range names {
		raw := driver.RawVarchar
		if i < len(types) && types[i] != nil {
			raw = rawTypeFromDatabaseTypeName(types[i].DatabaseTypeName())
		}
		meta[i] = driver.ColumnMeta{Name: name, RawType: raw}
	}
	return &Cursor{rows: rows, columns: meta, cancel: cancel}
}

func (c *Cursor) Columns() ([]driver.ColumnMeta, error) { return c.columns, nil }

func (c *Cursor) Next(ctx context.Context) (bool, error) {
	if !c.rows.Next() {
		return false, c.rows.Err()
	}
	dest := make([]any, len(c.columns))
	raw := make([]sql.RawBytes, len(c.columns))
	for i := range dest {
		dest[i] = &raw[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		return false, err
	}
	isNull := make([]bool, len(c.columns))
	for i, r := range raw {
		isNull[i] = r == nil
	}
	c.current = raw
	c.isNull = isNull
	return true, nil
}

func (c *Cursor) GetText(col int) (string, bool, error) {
	if c.isNull[col] {
		return "", true, nil
	}
	return string(c.current[col]), false, nil
}

func (c *Cursor) GetBinary(col int) ([]byte, bool, error) {
	if c.isNull[col] {
		return nil, true, nil
	}
	out := make([]byte, len(c.current[col]))
	copy(out, c.current[col])
	return out, false, nil
}

func (c *Cursor) MoreResults(ctx context.Context) (bool, bool, int64, error) {
	if !c.rows.NextResultSet() {
		return false, false, 0, c.rows.Err()
	}
	cols, err := c.rows.Columns()
	if err != nil {
		return false, false, 0, err
	}
	types, _ := c.rows.ColumnTypes()
	meta := make([]driver.ColumnMeta, len(cols))
	for i, name := range cols {
		raw := driver.RawVarchar
		if i < len(types) && types[i] != nil {
			raw = rawTypeFromDatabaseTypeName(types[i].DatabaseTypeName())
		}
		meta[i] = driver.ColumnMeta{Name: name, RawType: raw}
	}
	c.columns = meta
	return true, true, 0, nil
}

func (c *Cursor) Close() error {
	err := c.rows.Close()
	if c.cancel != nil {
		c.cancel()
	}
	return err
}

// rawTypeFromDatabaseTypeName maps a database/sql driver's reported
// DatabaseTypeName to the engine's RawType, covering the common names
// reported by modernc.org/sqlite, go-sql-driver/mysql, jackc/pgx, and
// SAP/go-hdb.
func rawTypeFromDatabaseTypeName(name string) driver.RawType {
	switch strings.ToUpper(name) {
	case "INT", "INTEGER", "INT4", "SMALLINT", "INT2", "TINYINT":
		return driver.RawInteger
	case "BIGINT", "INT8":
		return driver.RawBigInt
	case "DECIMAL", "NUMERIC", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "REAL":
		return driver.RawDecimal
	case "BLOB", "BINARY", "VARBINARY", "BYTEA":
		return driver.RawBinary
	default:
		return driver.RawVarchar
	}
}

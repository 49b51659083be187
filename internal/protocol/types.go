// Package protocol implements the engine's self-describing binary wire
// formats: row-major result buffers (v1), columnar result buffers with
// optional per-block compression (v2), the multi-result sequence format,
// the tagged parameter-value format, and the bulk-insert payload format.
package protocol

// ColumnType is the engine's normalized column type code. It is the value
// carried as type_code in both result protocol headers.
type ColumnType uint16

const (
	TypeInteger ColumnType = iota // 32-bit integer, normalized to 4-byte LE
	TypeBigInt                    // 64-bit integer, normalized to 8-byte LE
	TypeVarchar                   // driver text form
	TypeBinary                    // raw bytes
	TypeDecimal                   // driver text form
	TypeOther                     // any other driver type, carried as driver text form
)

// Column describes one result-set column.
type Column struct {
	Name string
	Type ColumnType
}

// Cell is one optional byte-vector value. A nil Value (with Null true)
// represents SQL NULL; an empty non-nil Value is a present empty value.
type Cell struct {
	Null  bool
	Value []byte
}

// RowBuffer is the row-major protocol v1 in-memory representation.
type RowBuffer struct {
	Columns []Column
	Rows    [][]Cell
}

// ColumnCount returns the number of columns.
func (b *RowBuffer) ColumnCount() int { return len(b.Columns) }

// RowCount returns the number of rows.
func (b *RowBuffer) RowCount() int { return len(b.Rows) }

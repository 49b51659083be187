// Package pipeline implements the query execution pipeline (spec §4.6,
// §4.7, §4.9): fingerprinting + prepared-statement cache lookup,
// parameter binding with the 5-parameter textual-binding ceiling, driver
// execution, and the per-column cell reader that normalizes integer
// columns to little-endian wire form while leaving everything else as
// driver-reported text or binary. Grounded on FerretDB's
// internal/handler query-to-result pipeline in its separation of
// "prepare/cache", "bind", and "read result" into distinct steps driven
// by one top-level Execute-style entry point.
package pipeline

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// ReadRow pulls one row's cells from cursor, applying the per-type
// reading rule (spec §4.7): binary columns via GetBinary; integer and
// bigint columns via GetText, trimmed and parsed to a little-endian
// fixed-width integer, falling back to the raw driver text bytes on
// parse failure; everything else via GetText as-is.
func ReadRow(cursor driver.Cursor, columns []protocol.Column) ([]protocol.Cell, error) {
	cells := make([]protocol.Cell, len(columns))

	for i, col := range columns {
		switch col.Type {
		case protocol.TypeBinary:
			v, isNull, err := cursor.GetBinary(i)
			if err != nil {
				return nil, err
			}
			cells[i] = protocol.Cell{Null: isNull, Value: v}

		case protocol.TypeInteger, protocol.TypeBigInt:
			text, isNull, err := cursor.GetText(i)
			if err != nil {
				return nil, err
			}
			if isNull {
				cells[i] = protocol.Cell{Null: true}
				continue
			}
			cells[i] = protocol.Cell{Value: normalizeInteger(col.Type, text)}

		default:
			text, isNull, err := cursor.GetText(i)
			if err != nil {
				return nil, err
			}
			cells[i] = protocol.Cell{Null: isNull, Value: []byte(text)}
		}
	}

	return cells, nil
}

// normalizeInteger parses the driver's trimmed textual representation
// into a little-endian 4- or 8-byte integer. A value the driver
// reported that does not parse as an integer (rare, but possible for
// odd driver/type-mapping combinations) falls back to the raw text
// bytes rather than erroring the whole row.
func normalizeInteger(t protocol.ColumnType, text string) []byte {
	trimmed := strings.TrimSpace(text)

	if t == protocol.TypeInteger {
		n, err := strconv.ParseInt(trimmed, 10, 32)
		if err != nil {
			return []byte(text)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(n)))
		return buf
	}

	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return []byte(text)
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(n))
	return buf
}

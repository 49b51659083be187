package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// BulkColumnType is the type tag of a bulk-insert payload column.
type BulkColumnType uint8

const (
	BulkI32 BulkColumnType = iota
	BulkI64
	BulkText
	BulkDecimal
	BulkBinary
	BulkTimestamp
)

// BulkColumnSpec describes one column of a bulk-insert payload.
type BulkColumnSpec struct {
	Name     string
	Type     BulkColumnType
	Nullable bool
	MaxLen   uint32 // fixed cell width for Text/Decimal/Binary; ignored for other types
}

// Timestamp is the fixed 16-byte timestamp cell layout of spec §4.6.
type Timestamp struct {
	Year     int16
	Month    uint16
	Day      uint16
	Hour     uint16
	Minute   uint16
	Second   uint16
	Fraction uint32
}

// BulkColumnData is one column's worth of row data, in the variant
// matching its BulkColumnSpec.Type. Nulls has length RowCount and is only
// meaningful (and only written to the wire) when the column is nullable.
type BulkColumnData struct {
	Nulls      []bool
	I32s       []int32
	I64s       []int64
	Texts      [][]byte // BulkText, BulkDecimal: logical cell bytes, unpadded
	Binaries   [][]byte // BulkBinary: opaque logical cell bytes, unpadded
	Timestamps []Timestamp
}

// BulkInsertPayload is the self-describing columnar insert frame of spec §4.6.
type BulkInsertPayload struct {
	Table    string
	Columns  []BulkColumnSpec
	RowCount int
	Data     []BulkColumnData // aligned with Columns
}

func bitmapSize(rowCount int) int { return (rowCount + 7) / 8 }

func bitmapGet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<(uint(i)%8)) != 0
}

func bitmapSet(bitmap []byte, i int) {
	bitmap[i/8] |= 1 << (uint(i) % 8)
}

// Serialize encodes p as the bulk-insert payload wire format.
func (p *BulkInsertPayload) Serialize() ([]byte, error) {
	var buf []byte

	tableBytes := []byte(p.Table)
	tl := make([]byte, 4)
	binary.LittleEndian.PutUint32(tl, uint32(len(tableBytes)))
	buf = append(buf, tl...)
	buf = append(buf, tableBytes...)

	cc := make([]byte, 4)
	binary.LittleEndian.PutUint32(cc, uint32(len(p.Columns)))
	buf = append(buf, cc...)

	for _, col := range p.Columns {
		nameBytes := []byte(col.Name)
		nl := make([]byte, 4)
		binary.LittleEndian.PutUint32(nl, uint32(len(nameBytes)))
		buf = append(buf, nl...)
		buf = append(buf, nameBytes...)
		buf = append(buf, byte(col.Type))
		if col.Nullable {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		ml := make([]byte, 4)
		binary.LittleEndian.PutUint32(ml, col.MaxLen)
		buf = append(buf, ml...)
	}

	rc := make([]byte, 4)
	binary.LittleEndian.PutUint32(rc, uint32(p.RowCount))
	buf = append(buf, rc...)

	for i, col := range p.Columns {
		block, err := serializeBulkColumn(col, p.Data[i], p.RowCount)
		if err != nil {
			return nil, err
		}
		buf = append(buf, block...)
	}

	return buf, nil
}

func serializeBulkColumn(col BulkColumnSpec, data BulkColumnData, rowCount int) ([]byte, error) {
	var out []byte

	if col.Nullable {
		bitmap := make([]byte, bitmapSize(rowCount))
		for r := 0; r < rowCount; r++ {
			if data.Nulls[r] {
				bitmapSet(bitmap, r)
			}
		}
		out = append(out, bitmap...)
	}

	switch col.Type {
	case BulkI32:
		for r := 0; r < rowCount; r++ {
			v := make([]byte, 4)
			binary.LittleEndian.PutUint32(v, uint32(data.I32s[r]))
			out = append(out, v...)
		}
	case BulkI64:
		for r := 0; r < rowCount; r++ {
			v := make([]byte, 8)
			binary.LittleEndian.PutUint64(v, uint64(data.I64s[r]))
			out = append(out, v...)
		}
	case BulkText, BulkDecimal:
		for r := 0; r < rowCount; r++ {
			cell := data.Texts[r]
			if uint32(len(cell)) > col.MaxLen {
				return nil, odbcerr.NewValidation(fmt.Sprintf("bulk insert: column %q cell length %d exceeds max_len %d", col.Name, len(cell), col.MaxLen))
			}
			padded := make([]byte, col.MaxLen)
			copy(padded, cell)
			out = append(out, padded...)
		}
	case BulkBinary:
		for r := 0; r < rowCount; r++ {
			cell := data.Binaries[r]
			if uint32(len(cell)) > col.MaxLen {
				return nil, odbcerr.NewValidation(fmt.Sprintf("bulk insert: column %q cell length %d exceeds max_len %d", col.Name, len(cell), col.MaxLen))
			}
			padded := make([]byte, col.MaxLen)
			copy(padded, cell)
			out = append(out, padded...)
		}
	case BulkTimestamp:
		for r := 0; r < rowCount; r++ {
			ts := data.Timestamps[r]
			v := make([]byte, 16)
			binary.LittleEndian.PutUint16(v[0:2], uint16(ts.Year))
			binary.LittleEndian.PutUint16(v[2:4], ts.Month)
			binary.LittleEndian.PutUint16(v[4:6], ts.Day)
			binary.LittleEndian.PutUint16(v[6:8], ts.Hour)
			binary.LittleEndian.PutUint16(v[8:10], ts.Minute)
			binary.LittleEndian.PutUint16(v[10:12], ts.Second)
			binary.LittleEndian.PutUint32(v[12:16], ts.Fraction)
			out = append(out, v...)
		}
	default:
		return nil, fmt.Errorf("bulk insert: unknown column type %d", col.Type)
	}

	return out, nil
}

// ParseBulkInsertPayload parses the wire format produced by Serialize. It
// enforces that the total consumed length equals len(buf) exactly.
func ParseBulkInsertPayload(buf []byte) (*BulkInsertPayload, error) {
	pos := 0

	readU32 := func(what string) (uint32, error) {
		if pos+4 > len(buf) {
			return 0, fmt.Errorf("bulk insert: truncated %s", what)
		}
		v := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4
		return v, nil
	}

	tableLen, err := readU32("table_len")
	if err != nil {
		return nil, err
	}
	if pos+int(tableLen) > len(buf) {
		return nil, fmt.Errorf("bulk insert: truncated table name")
	}
	table := string(buf[pos : pos+int(tableLen)])
	pos += int(tableLen)

	columnCount, err := readU32("column_count")
	if err != nil {
		return nil, err
	}

	columns := make([]BulkColumnSpec, 0, columnCount)
	for i := 0; i < int(columnCount); i++ {
		nameLen, err := readU32(fmt.Sprintf("column %d name_len", i))
		if err != nil {
			return nil, err
		}
		if pos+int(nameLen) > len(buf) {
			return nil, fmt.Errorf("bulk insert: truncated column %d name", i)
		}
		name := string(buf[pos : pos+int(nameLen)])
		pos += int(nameLen)

		if pos+1+1+4 > len(buf) {
			return nil, fmt.Errorf("bulk insert: truncated column %d descriptor", i)
		}
		typeTag := BulkColumnType(buf[pos])
		pos++
		nullable := buf[pos] == 1
		pos++
		maxLen := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4

		columns = append(columns, BulkColumnSpec{Name: name, Type: typeTag, Nullable: nullable, MaxLen: maxLen})
	}

	rowCountU32, err := readU32("row_count")
	if err != nil {
		return nil, err
	}
	rowCount := int(rowCountU32)

	data := make([]BulkColumnData, len(columns))
	for i, col := range columns {
		blockLen, err := bulkColumnWireLen(col, rowCount)
		if err != nil {
			return nil, err
		}
		if pos+blockLen > len(buf) {
			return nil, odbcerr.NewValidation("payload length mismatch")
		}
		blockBuf := buf[pos : pos+blockLen]
		pos += blockLen

		d, err := parseBulkColumn(col, blockBuf, rowCount)
		if err != nil {
			return nil, err
		}
		data[i] = d
	}

	if pos != len(buf) {
		return nil, odbcerr.NewValidation("payload length mismatch")
	}

	return &BulkInsertPayload{Table: table, Columns: columns, RowCount: rowCount, Data: data}, nil
}

func bulkColumnWireLen(col BulkColumnSpec, rowCount int) (int, error) {
	n := 0
	if col.Nullable {
		n += bitmapSize(rowCount)
	}
	switch col.Type {
	case BulkI32:
		n += rowCount * 4
	case BulkI64:
		n += rowCount * 8
	case BulkText, BulkDecimal, BulkBinary:
		n += rowCount * int(col.MaxLen)
	case BulkTimestamp:
		n += rowCount * 16
	default:
		return 0, fmt.Errorf("bulk insert: unknown column type %d", col.Type)
	}
	return n, nil
}

func parseBulkColumn(col BulkColumnSpec, buf []byte, rowCount int) (BulkColumnData, error) {
	d := BulkColumnData{Nulls: make([]bool, rowCount)}
	pos := 0

	if col.Nullable {
		bmLen := bitmapSize(rowCount)
		bitmap := buf[pos : pos+bmLen]
		for r := 0; r < rowCount; r++ {
			d.Nulls[r] = bitmapGet(bitmap, r)
		}
		pos += bmLen
	}

	switch col.Type {
	case BulkI32:
		d.I32s = make([]int32, rowCount)
		for r := 0; r < rowCount; r++ {
			d.I32s[r] = int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			pos += 4
		}
	case BulkI64:
		d.I64s = make([]int64, rowCount)
		for r := 0; r < rowCount; r++ {
			d.I64s[r] = int64(binary.LittleEndian.Uint64(buf[pos : pos+8]))
			pos += 8
		}
	case BulkText, BulkDecimal:
		d.Texts = make([][]byte, rowCount)
		for r := 0; r < rowCount; r++ {
			cell := buf[pos : pos+int(col.MaxLen)]
			d.Texts[r] = truncateAtNUL(cell)
			pos += int(col.MaxLen)
		}
	case BulkBinary:
		d.Binaries = make([][]byte, rowCount)
		for r := 0; r < rowCount; r++ {
			cell := buf[pos : pos+int(col.MaxLen)]
			d.Binaries[r] = truncateAtNUL(cell)
			pos += int(col.MaxLen)
		}
	case BulkTimestamp:
		d.Timestamps = make([]Timestamp, rowCount)
		for r := 0; r < rowCount; r++ {
			v := buf[pos : pos+16]
			d.Timestamps[r] = Timestamp{
				Year:     int16(binary.LittleEndian.Uint16(v[0:2])),
				Month:    binary.LittleEndian.Uint16(v[2:4]),
				Day:      binary.LittleEndian.Uint16(v[4:6]),
				Hour:     binary.LittleEndian.Uint16(v[6:8]),
				Minute:   binary.LittleEndian.Uint16(v[8:10]),
				Second:   binary.LittleEndian.Uint16(v[10:12]),
				Fraction: binary.LittleEndian.Uint32(v[12:16]),
			}
			pos += 16
		}
	}

	return d, nil
}

// truncateAtNUL returns the logical cell: everything before the first NUL
// byte, or the whole (already-right-sized) slice if there is none.
func truncateAtNUL(cell []byte) []byte {
	for i, b := range cell {
		if b == 0 {
			out := make([]byte, i)
			copy(out, cell[:i])
			return out
		}
	}
	out := make([]byte, len(cell))
	copy(out, cell)
	return out
}

package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

const (
	v1Magic   uint32 = 0x4F444243
	v1Version uint16 = 1

	v1HeaderLen = 4 + 2 + 2 + 4 + 4 // magic, version, column_count, row_count, payload_size
)

// EncodeV1 serializes b as the row-major protocol v1 buffer.
func EncodeV1(b *RowBuffer) []byte {
	var body []byte // everything after the fixed header: column metadata + rows

	for _, col := range b.Columns {
		nameBytes := []byte(col.Name)
		hdr := make([]byte, 2+2)
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(col.Type))
		binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(nameBytes)))
		body = append(body, hdr...)
		body = append(body, nameBytes...)
	}

	for _, row := range b.Rows {
		for _, cell := range row {
			if cell.Null {
				body = append(body, 1)
				continue
			}
			body = append(body, 0)
			lenBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(lenBuf, uint32(len(cell.Value)))
			body = append(body, lenBuf...)
			body = append(body, cell.Value...)
		}
	}

	out := make([]byte, v1HeaderLen+len(body))
	binary.LittleEndian.PutUint32(out[0:4], v1Magic)
	binary.LittleEndian.PutUint16(out[4:6], v1Version)
	binary.LittleEndian.PutUint16(out[6:8], uint16(len(b.Columns)))
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(b.Rows)))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(body)))
	copy(out[v1HeaderLen:], body)
	return out
}

// DecodeV1 parses the row-major protocol v1 buffer produced by EncodeV1.
// It strictly validates the magic/version and rejects any truncated
// segment, naming the offending segment in the returned error.
func DecodeV1(buf []byte) (*RowBuffer, error) {
	if len(buf) < v1HeaderLen {
		return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: buffer too short for header: %d bytes", len(buf)))
	}

	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != v1Magic {
		return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: bad magic %#x", magic))
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != v1Version {
		return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: unsupported version %d", version))
	}

	columnCount := int(binary.LittleEndian.Uint16(buf[6:8]))
	rowCount := int(binary.LittleEndian.Uint32(buf[8:12]))

	pos := v1HeaderLen
	columns := make([]Column, 0, columnCount)
	for i := 0; i < columnCount; i++ {
		if pos+4 > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: truncated column metadata at column %d", i))
		}
		typeCode := binary.LittleEndian.Uint16(buf[pos : pos+2])
		nameLen := int(binary.LittleEndian.Uint16(buf[pos+2 : pos+4]))
		pos += 4

		if pos+nameLen > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: truncated column name at column %d", i))
		}
		name := buf[pos : pos+nameLen]
		if !utf8.Valid(name) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: invalid UTF-8 column name at column %d", i))
		}
		pos += nameLen

		columns = append(columns, Column{Name: string(name), Type: ColumnType(typeCode)})
	}

	rows := make([][]Cell, 0, rowCount)
	for r := 0; r < rowCount; r++ {
		row := make([]Cell, 0, columnCount)
		for c := 0; c < columnCount; c++ {
			if pos+1 > len(buf) {
				return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: truncated null flag at row %d column %d", r, c))
			}
			nullFlag := buf[pos]
			pos++

			if nullFlag == 1 {
				row = append(row, Cell{Null: true})
				continue
			}

			if pos+4 > len(buf) {
				return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: truncated cell length at row %d column %d", r, c))
			}
			cellLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			pos += 4

			if pos+cellLen > len(buf) {
				return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v1: truncated cell payload at row %d column %d", r, c))
			}
			value := make([]byte, cellLen)
			copy(value, buf[pos:pos+cellLen])
			pos += cellLen

			row = append(row, Cell{Value: value})
		}
		rows = append(rows, row)
	}

	return &RowBuffer{Columns: columns, Rows: rows}, nil
}

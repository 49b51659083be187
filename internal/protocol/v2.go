package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

const (
	v2Magic   uint32 = 0x4F444243 + 1 // deliberately disjoint from v1Magic
	v2Version uint16 = 2

	v2HeaderLen = 4 + 2 + 2 + 2 + 4 + 1 + 4 // magic, version, flags, column_count, row_count, compression_enabled, payload_size
)

// ColumnBlock is the in-memory columnar representation of one column.
// Exactly one of Int32s, Int64s, Bytes is meaningful, selected by the
// owning Column's Type; Nulls always has length RowCount.
type ColumnBlock struct {
	Nulls  []bool
	Int32s []int32
	Int64s []int64
	Bytes  [][]byte
}

// ColumnarBuffer is the protocol v2 in-memory representation.
type ColumnarBuffer struct {
	Columns  []Column
	RowCount int
	Blocks   []ColumnBlock // aligned with Columns
}

// blockCompressionType is the codec EncodeV2 attempts when compression is requested.
const blockCompressionType = CompressionZstd

// EncodeV2 serializes b as the columnar protocol v2 buffer, compressing
// each column block independently when useCompression is true and the
// block is large enough to benefit (spec §4.3).
func EncodeV2(b *ColumnarBuffer, useCompression bool) ([]byte, error) {
	var body []byte
	anyCompressed := false

	for i, col := range b.Columns {
		raw, err := encodeV2Block(col.Type, b.Blocks[i], b.RowCount)
		if err != nil {
			return nil, err
		}

		wire, applied, err := CompressBlock(raw, useCompression, blockCompressionType)
		if err != nil {
			return nil, err
		}
		if applied {
			anyCompressed = true
		}

		nameBytes := []byte(col.Name)
		colHdr := make([]byte, 2+2)
		binary.LittleEndian.PutUint16(colHdr[0:2], uint16(col.Type))
		binary.LittleEndian.PutUint16(colHdr[2:4], uint16(len(nameBytes)))
		body = append(body, colHdr...)
		body = append(body, nameBytes...)

		if applied {
			body = append(body, 1, byte(blockCompressionType))
		} else {
			body = append(body, 0)
		}

		blockLen := make([]byte, 4)
		binary.LittleEndian.PutUint32(blockLen, uint32(len(wire)))
		body = append(body, blockLen...)
		body = append(body, wire...)
	}

	out := make([]byte, v2HeaderLen+len(body))
	binary.LittleEndian.PutUint32(out[0:4], v2Magic)
	binary.LittleEndian.PutUint16(out[4:6], v2Version)
	binary.LittleEndian.PutUint16(out[6:8], 0) // flags, unused
	binary.LittleEndian.PutUint16(out[8:10], uint16(len(b.Columns)))
	binary.LittleEndian.PutUint32(out[10:14], uint32(b.RowCount))
	if anyCompressed {
		out[14] = 1
	}
	binary.LittleEndian.PutUint32(out[15:19], uint32(len(body)))
	copy(out[v2HeaderLen:], body)
	return out, nil
}

func encodeV2Block(t ColumnType, blk ColumnBlock, rowCount int) ([]byte, error) {
	var out []byte
	switch t {
	case TypeInteger:
		for r := 0; r < rowCount; r++ {
			if blk.Nulls[r] {
				out = append(out, 1)
				continue
			}
			out = append(out, 0)
			v := make([]byte, 4)
			binary.LittleEndian.PutUint32(v, uint32(blk.Int32s[r]))
			out = append(out, v...)
		}
	case TypeBigInt:
		for r := 0; r < rowCount; r++ {
			if blk.Nulls[r] {
				out = append(out, 1)
				continue
			}
			out = append(out, 0)
			v := make([]byte, 8)
			binary.LittleEndian.PutUint64(v, uint64(blk.Int64s[r]))
			out = append(out, v...)
		}
	case TypeVarchar, TypeBinary, TypeDecimal, TypeOther:
		for r := 0; r < rowCount; r++ {
			if blk.Nulls[r] {
				out = append(out, 1)
				continue
			}
			out = append(out, 0)
			lenBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(lenBuf, uint32(len(blk.Bytes[r])))
			out = append(out, lenBuf...)
			out = append(out, blk.Bytes[r]...)
		}
	default:
		return nil, fmt.Errorf("protocol: unsupported column type %d for v2 encoding", t)
	}
	return out, nil
}

// DecodeV2 parses the columnar protocol v2 buffer produced by EncodeV2.
func DecodeV2(buf []byte) (*ColumnarBuffer, error) {
	if len(buf) < v2HeaderLen {
		return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: buffer too short for header: %d bytes", len(buf)))
	}

	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != v2Magic {
		return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: bad magic %#x", magic))
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != v2Version {
		return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: unsupported version %d", version))
	}

	columnCount := int(binary.LittleEndian.Uint16(buf[8:10]))
	rowCount := int(binary.LittleEndian.Uint32(buf[10:14]))

	pos := v2HeaderLen
	columns := make([]Column, 0, columnCount)
	blocks := make([]ColumnBlock, 0, columnCount)

	for i := 0; i < columnCount; i++ {
		if pos+4 > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: truncated column metadata at column %d", i))
		}
		typeCode := ColumnType(binary.LittleEndian.Uint16(buf[pos : pos+2]))
		nameLen := int(binary.LittleEndian.Uint16(buf[pos+2 : pos+4]))
		pos += 4

		if pos+nameLen > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: truncated column name at column %d", i))
		}
		name := buf[pos : pos+nameLen]
		if !utf8.Valid(name) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: invalid UTF-8 column name at column %d", i))
		}
		pos += nameLen

		if pos+1 > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: truncated compression flag at column %d", i))
		}
		perBlockCompressed := buf[pos] == 1
		pos++

		var ctype CompressionType
		if perBlockCompressed {
			if pos+1 > len(buf) {
				return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: truncated compression type at column %d", i))
			}
			ctype = CompressionType(buf[pos])
			pos++
		}

		if pos+4 > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: truncated block length at column %d", i))
		}
		blockLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		pos += 4

		if pos+blockLen > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: truncated block data at column %d", i))
		}
		raw := buf[pos : pos+blockLen]
		pos += blockLen

		if perBlockCompressed {
			decoded, err := DecompressBlock(ctype, raw)
			if err != nil {
				return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: column %d: %s", i, err))
			}
			raw = decoded
		}

		blk, err := decodeV2Block(typeCode, raw, rowCount)
		if err != nil {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol v2: column %d: %s", i, err))
		}

		columns = append(columns, Column{Name: string(name), Type: typeCode})
		blocks = append(blocks, blk)
	}

	return &ColumnarBuffer{Columns: columns, RowCount: rowCount, Blocks: blocks}, nil
}

func decodeV2Block(t ColumnType, raw []byte, rowCount int) (ColumnBlock, error) {
	blk := ColumnBlock{Nulls: make([]bool, rowCount)}
	pos := 0

	switch t {
	case TypeInteger:
		blk.Int32s = make([]int32, rowCount)
		for r := 0; r < rowCount; r++ {
			if pos+1 > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated null flag at row %d", r))
			}
			if raw[pos] == 1 {
				blk.Nulls[r] = true
				pos++
				continue
			}
			pos++
			if pos+4 > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated int32 value at row %d", r))
			}
			blk.Int32s[r] = int32(binary.LittleEndian.Uint32(raw[pos : pos+4]))
			pos += 4
		}
	case TypeBigInt:
		blk.Int64s = make([]int64, rowCount)
		for r := 0; r < rowCount; r++ {
			if pos+1 > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated null flag at row %d", r))
			}
			if raw[pos] == 1 {
				blk.Nulls[r] = true
				pos++
				continue
			}
			pos++
			if pos+8 > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated int64 value at row %d", r))
			}
			blk.Int64s[r] = int64(binary.LittleEndian.Uint64(raw[pos : pos+8]))
			pos += 8
		}
	case TypeVarchar, TypeBinary, TypeDecimal, TypeOther:
		blk.Bytes = make([][]byte, rowCount)
		for r := 0; r < rowCount; r++ {
			if pos+1 > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated null flag at row %d", r))
			}
			if raw[pos] == 1 {
				blk.Nulls[r] = true
				pos++
				continue
			}
			pos++
			if pos+4 > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated cell length at row %d", r))
			}
			cellLen := int(binary.LittleEndian.Uint32(raw[pos : pos+4]))
			pos += 4
			if pos+cellLen > len(raw) {
				return blk, odbcerr.NewValidation(fmt.Sprintf("truncated cell payload at row %d", r))
			}
			v := make([]byte, cellLen)
			copy(v, raw[pos:pos+cellLen])
			blk.Bytes[r] = v
			pos += cellLen
		}
	default:
		return blk, odbcerr.NewValidation(fmt.Sprintf("unsupported column type %d", t))
	}

	return blk, nil
}

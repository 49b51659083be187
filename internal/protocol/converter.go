package protocol

import "encoding/binary"

// RowToColumnar reconstructs a ColumnarBuffer from a row-major RowBuffer,
// decoding the 4-/8-byte little-endian integer cells back to their native
// values and leaving all other column data as raw byte payloads.
func RowToColumnar(b *RowBuffer) *ColumnarBuffer {
	out := &ColumnarBuffer{
		Columns:  append([]Column(nil), b.Columns...),
		RowCount: len(b.Rows),
		Blocks:   make([]ColumnBlock, len(b.Columns)),
	}

	for ci, col := range b.Columns {
		blk := ColumnBlock{Nulls: make([]bool, out.RowCount)}
		switch col.Type {
		case TypeInteger:
			blk.Int32s = make([]int32, out.RowCount)
		case TypeBigInt:
			blk.Int64s = make([]int64, out.RowCount)
		default:
			blk.Bytes = make([][]byte, out.RowCount)
		}

		for ri, row := range b.Rows {
			cell := row[ci]
			if cell.Null {
				blk.Nulls[ri] = true
				continue
			}
			switch col.Type {
			case TypeInteger:
				if len(cell.Value) == 4 {
					blk.Int32s[ri] = int32(binary.LittleEndian.Uint32(cell.Value))
				}
			case TypeBigInt:
				if len(cell.Value) == 8 {
					blk.Int64s[ri] = int64(binary.LittleEndian.Uint64(cell.Value))
				}
			default:
				blk.Bytes[ri] = cell.Value
			}
		}

		out.Blocks[ci] = blk
	}

	return out
}

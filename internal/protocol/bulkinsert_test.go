package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkInsertI32WithNullBitmap(t *testing.T) {
	t.Parallel()

	p := &BulkInsertPayload{
		Table:    "orders",
		Columns:  []BulkColumnSpec{{Name: "a", Type: BulkI32, Nullable: true}},
		RowCount: 3,
		Data: []BulkColumnData{
			{Nulls: []bool{false, true, false}, I32s: []int32{1, 0, 3}},
		},
	}

	buf, err := p.Serialize()
	require.NoError(t, err)

	got, err := ParseBulkInsertPayload(buf)
	require.NoError(t, err)

	assert.Equal(t, 3, got.RowCount)
	assert.Equal(t, []int32{1, 0, 3}, got.Data[0].I32s)
	assert.Equal(t, []bool{false, true, false}, got.Data[0].Nulls)
}

func TestBulkInsertRoundTripAllTypes(t *testing.T) {
	t.Parallel()

	p := &BulkInsertPayload{
		Table: "t",
		Columns: []BulkColumnSpec{
			{Name: "i", Type: BulkI32, Nullable: false},
			{Name: "b", Type: BulkI64, Nullable: true},
			{Name: "txt", Type: BulkText, Nullable: true, MaxLen: 10},
			{Name: "dec", Type: BulkDecimal, Nullable: false, MaxLen: 8},
			{Name: "bin", Type: BulkBinary, Nullable: true, MaxLen: 4},
			{Name: "ts", Type: BulkTimestamp, Nullable: false},
		},
		RowCount: 2,
		Data: []BulkColumnData{
			{I32s: []int32{10, 20}, Nulls: []bool{false, false}},
			{I64s: []int64{100, 0}, Nulls: []bool{false, true}},
			{Texts: [][]byte{[]byte("hi"), nil}, Nulls: []bool{false, true}},
			{Texts: [][]byte{[]byte("12.50"), []byte("0.00")}, Nulls: []bool{false, false}},
			{Binaries: [][]byte{{1, 2}, nil}, Nulls: []bool{false, true}},
			{
				Timestamps: []Timestamp{
					{Year: 2024, Month: 1, Day: 2, Hour: 3, Minute: 4, Second: 5, Fraction: 6},
					{Year: 1999, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 59, Fraction: 999},
				},
				Nulls: []bool{false, false},
			},
		},
	}

	buf, err := p.Serialize()
	require.NoError(t, err)

	got, err := ParseBulkInsertPayload(buf)
	require.NoError(t, err)

	assert.Equal(t, p.Table, got.Table)
	assert.Equal(t, p.RowCount, got.RowCount)
	assert.Equal(t, []int32{10, 20}, got.Data[0].I32s)
	assert.Equal(t, "hi", string(got.Data[2].Texts[0]))
	assert.Equal(t, "12.50", string(got.Data[3].Texts[0]))
	assert.Equal(t, []byte{1, 2}, got.Data[4].Binaries[0])
	assert.Equal(t, p.Data[5].Timestamps, got.Data[5].Timestamps)
}

func TestBulkInsertNULTruncation(t *testing.T) {
	t.Parallel()

	// Cell ends in an embedded NUL followed by padding; parse must truncate
	// at the first NUL, not the end of max_len.
	p := &BulkInsertPayload{
		Table:    "t",
		Columns:  []BulkColumnSpec{{Name: "txt", Type: BulkText, MaxLen: 10}},
		RowCount: 1,
		Data:     []BulkColumnData{{Texts: [][]byte{[]byte("abc")}}},
	}

	buf, err := p.Serialize()
	require.NoError(t, err)

	got, err := ParseBulkInsertPayload(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got.Data[0].Texts[0]))
}

func TestBulkInsertZeroRows(t *testing.T) {
	t.Parallel()

	p := &BulkInsertPayload{
		Table:    "t",
		Columns:  []BulkColumnSpec{{Name: "i", Type: BulkI32}},
		RowCount: 0,
		Data:     []BulkColumnData{{}},
	}
	buf, err := p.Serialize()
	require.NoError(t, err)

	got, err := ParseBulkInsertPayload(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RowCount)
}

func TestBulkInsertRejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	p := &BulkInsertPayload{
		Table:    "t",
		Columns:  []BulkColumnSpec{{Name: "i", Type: BulkI32}},
		RowCount: 2,
		Data:     []BulkColumnData{{I32s: []int32{1, 2}}},
	}
	buf, err := p.Serialize()
	require.NoError(t, err)

	_, err = ParseBulkInsertPayload(buf[:len(buf)-1])
	require.Error(t, err)

	_, err = ParseBulkInsertPayload(append(buf, 0))
	require.Error(t, err)
}

func TestBulkInsertRejectsOverlongCell(t *testing.T) {
	t.Parallel()

	p := &BulkInsertPayload{
		Table:    "t",
		Columns:  []BulkColumnSpec{{Name: "txt", Type: BulkText, MaxLen: 2}},
		RowCount: 1,
		Data:     []BulkColumnData{{Texts: [][]byte{[]byte("too long")}}},
	}
	_, err := p.Serialize()
	require.Error(t, err)
}

package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

func sampleColumnar() *ColumnarBuffer {
	return &ColumnarBuffer{
		Columns: []Column{
			{Name: "id", Type: TypeInteger},
			{Name: "amount", Type: TypeBigInt},
			{Name: "label", Type: TypeVarchar},
		},
		RowCount: 3,
		Blocks: []ColumnBlock{
			{Nulls: []bool{false, false, true}, Int32s: []int32{1, 2, 0}},
			{Nulls: []bool{false, true, false}, Int64s: []int64{1000, 0, 3000}},
			{Nulls: []bool{false, false, false}, Bytes: [][]byte{[]byte("a"), []byte("b"), []byte("c")}},
		},
	}
}

func TestV2RoundTripNoCompression(t *testing.T) {
	t.Parallel()

	c := sampleColumnar()
	encoded, err := EncodeV2(c, false)
	require.NoError(t, err)

	decoded, err := DecodeV2(encoded)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
	assert.Equal(t, byte(0), encoded[14], "compression_enabled flag must be 0 when compression was not requested")
}

func TestV2RoundTripWithCompression(t *testing.T) {
	t.Parallel()

	// Build a column large enough (>100 bytes raw, compressible) to trigger
	// the per-block compression path.
	rowCount := 200
	bytesCol := make([][]byte, rowCount)
	nulls := make([]bool, rowCount)
	for i := range bytesCol {
		bytesCol[i] = []byte(strings.Repeat("x", 50))
	}

	c := &ColumnarBuffer{
		Columns:  []Column{{Name: "data", Type: TypeVarchar}},
		RowCount: rowCount,
		Blocks:   []ColumnBlock{{Nulls: nulls, Bytes: bytesCol}},
	}

	encoded, err := EncodeV2(c, true)
	require.NoError(t, err)
	assert.Equal(t, byte(1), encoded[14], "compression_enabled flag must be set")

	decoded, err := DecodeV2(encoded)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestV2DisjointMagicFromV1(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, v1Magic, v2Magic)
}

func TestV2DecodeRejectsTruncation(t *testing.T) {
	t.Parallel()

	c := sampleColumnar()
	full, err := EncodeV2(c, false)
	require.NoError(t, err)

	_, err = DecodeV2(full[:len(full)-1])
	require.Error(t, err)

	_, err = DecodeV2(full[:v2HeaderLen-1])
	require.Error(t, err)

	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindValidationError, oErr.Kind)
}

func TestRowToColumnar(t *testing.T) {
	t.Parallel()

	rb := &RowBuffer{
		Columns: []Column{
			{Name: "id", Type: TypeInteger},
			{Name: "big", Type: TypeBigInt},
			{Name: "txt", Type: TypeVarchar},
		},
		Rows: [][]Cell{
			{{Value: []byte{7, 0, 0, 0}}, {Value: []byte{1, 0, 0, 0, 0, 0, 0, 0}}, {Value: []byte("hi")}},
			{{Null: true}, {Null: true}, {Null: true}},
		},
	}

	cb := RowToColumnar(rb)
	require.Equal(t, 2, cb.RowCount)
	assert.Equal(t, int32(7), cb.Blocks[0].Int32s[0])
	assert.True(t, cb.Blocks[0].Nulls[1])
	assert.Equal(t, int64(1), cb.Blocks[1].Int64s[0])
	assert.True(t, bytes.Equal([]byte("hi"), cb.Blocks[2].Bytes[0]))
	assert.True(t, cb.Blocks[2].Nulls[1])
}

func TestAutoSelect(t *testing.T) {
	t.Parallel()
	assert.False(t, AutoSelect(1<<20))
	assert.True(t, AutoSelect(1<<20+1))
	assert.False(t, AutoSelect(10))
}

func TestCompressBlockSkipsSmallBlocks(t *testing.T) {
	t.Parallel()
	raw := []byte("short")
	out, applied, err := CompressBlock(raw, true, CompressionZstd)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, raw, out)
}

func TestCompressBlockSkipsWhenNotRequested(t *testing.T) {
	t.Parallel()
	raw := []byte(strings.Repeat("y", 500))
	out, applied, err := CompressBlock(raw, false, CompressionZstd)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, raw, out)
}

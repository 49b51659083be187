package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

func TestV1RoundTripSingleIntegerCell(t *testing.T) {
	t.Parallel()

	b := &RowBuffer{
		Columns: []Column{{Name: "value", Type: TypeInteger}},
		Rows:    [][]Cell{{{Value: []byte{5, 0, 0, 0}}}},
	}

	encoded := EncodeV1(b)
	decoded, err := DecodeV1(encoded)
	require.NoError(t, err)

	require.Equal(t, 1, decoded.ColumnCount())
	require.Equal(t, 1, decoded.RowCount())
	assert.Equal(t, "value", decoded.Columns[0].Name)
	assert.Equal(t, TypeInteger, decoded.Columns[0].Type)
	assert.Equal(t, []byte{5, 0, 0, 0}, decoded.Rows[0][0].Value)
	assert.False(t, decoded.Rows[0][0].Null)
}

func TestV1RoundTripNullMixedRow(t *testing.T) {
	t.Parallel()

	b := &RowBuffer{
		Columns: []Column{
			{Name: "num", Type: TypeInteger},
			{Name: "text", Type: TypeVarchar},
		},
		Rows: [][]Cell{
			{{Value: []byte{42, 0, 0, 0}}, {Value: []byte("hello")}},
			{{Null: true}, {Value: []byte("world")}},
		},
	}

	encoded := EncodeV1(b)
	decoded, err := DecodeV1(encoded)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}

func TestV1RoundTripEmpty(t *testing.T) {
	t.Parallel()

	b := &RowBuffer{Columns: []Column{{Name: "a", Type: TypeVarchar}}}
	encoded := EncodeV1(b)
	decoded, err := DecodeV1(encoded)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.RowCount())
}

func TestV1DecodeRejectsBadMagic(t *testing.T) {
	t.Parallel()

	buf := EncodeV1(&RowBuffer{})
	buf[0] ^= 0xFF
	_, err := DecodeV1(buf)
	require.Error(t, err)

	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindValidationError, oErr.Kind)
}

func TestV1DecodeRejectsTruncation(t *testing.T) {
	t.Parallel()

	b := &RowBuffer{
		Columns: []Column{{Name: "value", Type: TypeInteger}},
		Rows:    [][]Cell{{{Value: []byte{5, 0, 0, 0}}}},
	}
	full := EncodeV1(b)

	for cut := 0; cut < len(full); cut++ {
		_, err := DecodeV1(full[:cut])
		if cut < v1HeaderLen {
			require.Error(t, err, "cut=%d", cut)
		}
	}

	_, err := DecodeV1(full[:len(full)-1])
	require.Error(t, err)
}

func TestV1DecodeRejectsInvalidUTF8Name(t *testing.T) {
	t.Parallel()

	b := &RowBuffer{Columns: []Column{{Name: "ok", Type: TypeVarchar}}}
	buf := EncodeV1(b)
	// corrupt the name bytes (positioned right after the 4-byte column header)
	buf[v1HeaderLen+4] = 0xFF
	_, err := DecodeV1(buf)
	require.Error(t, err)
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

func TestMultiResultRoundTrip(t *testing.T) {
	t.Parallel()

	items := []MultiResultItem{
		{ResultSet: []byte("first result set bytes")},
		{IsRowCount: true, RowCount: 42},
		{ResultSet: []byte{}},
		{IsRowCount: true, RowCount: -1},
	}

	encoded := EncodeMultiResult(items)
	decoded, err := DecodeMultiResult(encoded)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestMultiResultEmpty(t *testing.T) {
	t.Parallel()
	decoded, err := DecodeMultiResult(EncodeMultiResult(nil))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestMultiResultRejectsBadRowCountLength(t *testing.T) {
	t.Parallel()

	// Hand-craft: count=1, tag=1 (RowCount), len=4 (wrong, must be 8), 4 bytes payload.
	buf := []byte{1, 0, 0, 0, 1, 4, 0, 0, 0, 1, 2, 3, 4}
	_, err := DecodeMultiResult(buf)
	require.Error(t, err)

	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindValidationError, oErr.Kind)
}

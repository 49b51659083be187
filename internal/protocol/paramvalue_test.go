package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

func TestParamValueRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []ParamValue{
		{Kind: ParamString, Str: "hello world"},
		{Kind: ParamInteger, Int32: -12345},
		{Kind: ParamBigInt, Int64: 9223372036854775807},
		{Kind: ParamDecimal, Str: "123.456"},
		{Kind: ParamBinary, Binary: []byte{0x00, 0x01, 0xFF}},
	}

	for _, p := range cases {
		buf := p.Serialize()
		got, n, err := DeserializeParam(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, p, got)
	}
}

func TestParamValueListRoundTrip(t *testing.T) {
	t.Parallel()

	ps := []ParamValue{
		{Kind: ParamNull},
		{Kind: ParamInteger, Int32: 7},
		{Kind: ParamString, Str: "x"},
	}

	buf := SerializeParams(ps)
	got, err := DeserializeParams(buf)
	require.NoError(t, err)
	assert.Equal(t, ps, got)
}

func TestParamValueNullHasZeroLength(t *testing.T) {
	t.Parallel()
	buf := ParamValue{Kind: ParamNull}.Serialize()
	assert.Len(t, buf, 5)
}

func TestParamValueRejectsBadIntegerLength(t *testing.T) {
	t.Parallel()
	// tag=Integer(2), len=2 (wrong, must be 4), 2 bytes payload.
	buf := []byte{2, 2, 0, 0, 0, 1, 2}
	_, _, err := DeserializeParam(buf)
	require.Error(t, err)

	var oErr *odbcerr.Error
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, odbcerr.KindValidationError, oErr.Kind)
}

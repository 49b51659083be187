package odbcerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqlstate(s string) [5]byte {
	var b [5]byte
	copy(b[:], s)
	return b
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *Error
		want bool
	}{
		{"structured 08xxx", NewStructured(sqlstate("08001"), 0, "link failure"), true},
		{"structured other", NewStructured(sqlstate("42000"), 0, "syntax error"), false},
		{"pool error", NewPool("checkout timed out"), true},
		{"internal timeout", NewInternal("operation timeout exceeded"), true},
		{"internal Timeout capitalized", NewInternal("Timeout waiting for driver"), true},
		{"internal other", NewInternal("nil pointer"), false},
		{"validation", NewValidation("bad input"), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.err.IsRetryable())
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	assert.True(t, ErrEmptyConnectionString.IsConnectionError())
	assert.True(t, ErrEnvironmentNotInitialized.IsConnectionError())
	assert.True(t, NewStructured(sqlstate("08S01"), 0, "").IsConnectionError())
	assert.False(t, NewStructured(sqlstate("23000"), 0, "").IsConnectionError())
	assert.False(t, NewValidation("x").IsConnectionError())
}

func TestErrorCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryValidation, NewValidation("x").Category())
	assert.Equal(t, CategoryFatal, NewUnsupported("x").Category())
	assert.Equal(t, CategoryConnectionLost, ErrEmptyConnectionString.Category())
	assert.Equal(t, CategoryTransient, NewPool("timed out").Category())
	assert.Equal(t, CategoryFatal, NewOdbcAPI("generic failure").Category())
}

func TestStructuredRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []*Structured{
		{SQLState: sqlstate("08001"), NativeCode: -123, Message: "connection refused"},
		{SQLState: sqlstate("00000"), NativeCode: 0, Message: ""},
		{SQLState: sqlstate("HY000"), NativeCode: 42, Message: "a longer diagnostic message with spaces and punctuation!"},
	}

	for _, s := range cases {
		buf := s.Serialize()
		got, err := ParseStructured(buf)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestParseStructuredRejectsTruncated(t *testing.T) {
	t.Parallel()

	full := (&Structured{SQLState: sqlstate("08001"), NativeCode: 1, Message: "hello"}).Serialize()

	_, err := ParseStructured(nil)
	require.Error(t, err)

	_, err = ParseStructured(full[:12])
	require.Error(t, err)

	_, err = ParseStructured(full[:len(full)-1])
	require.Error(t, err)

	_, err = ParseStructured(full)
	require.NoError(t, err)
}

func TestErrorSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewStructured(sqlstate("42S02"), 208, "invalid object name")
	buf := e.Serialize()

	got, err := ParseError(buf)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestUserMessagePrefersStructuredMessage(t *testing.T) {
	t.Parallel()

	e := NewStructured(sqlstate("42000"), 1, "syntax error near SELECT")
	assert.Equal(t, "syntax error near SELECT", e.UserMessage())

	v := NewValidation("bad paramset size")
	assert.Contains(t, v.UserMessage(), "bad paramset size")
}

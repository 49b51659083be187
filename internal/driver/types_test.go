package driver

import (
	"testing"

	"github.com/cesarcarlos/odbcengine/internal/protocol"
	"github.com/stretchr/testify/assert"
)

func TestDefaultMapType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, protocol.TypeInteger, DefaultMapType(RawInteger))
	assert.Equal(t, protocol.TypeBigInt, DefaultMapType(RawBigInt))
	assert.Equal(t, protocol.TypeVarchar, DefaultMapType(RawVarchar))
	assert.Equal(t, protocol.TypeBinary, DefaultMapType(RawBinary))
	assert.Equal(t, protocol.TypeDecimal, DefaultMapType(RawDecimal))
	assert.Equal(t, protocol.TypeOther, DefaultMapType(RawType(999)))
}

func TestDetectDriver(t *testing.T) {
	t.Parallel()

	cases := []struct {
		connStr string
		want    string
		wantOK  bool
	}{
		{"DRIVER={SQL Server};SERVER=localhost", "sqlserver", true},
		{"Driver={MySQL ODBC 8.0 Driver};Server=localhost", "mysql", true},
		{"Driver={PostgreSQL Unicode};Server=localhost", "postgresql", true},
		{"Driver={SQLite3};Database=test.db", "sqlite", true},
		{"Driver={HDBODBC}", "hana", true},
		{"Driver={Some Other Thing}", "unknown", false},
	}

	for _, tc := range cases {
		name, ok := DetectDriver(tc.connStr)
		assert.Equal(t, tc.want, name, tc.connStr)
		assert.Equal(t, tc.wantOK, ok, tc.connStr)
	}
}

func TestPluginForDriverQuoting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[col]", PluginForDriver("sqlserver").QuoteIdentifier("col"))
	assert.Equal(t, "`col`", PluginForDriver("mysql").QuoteIdentifier("col"))
	assert.Equal(t, `"col"`, PluginForDriver("postgresql").QuoteIdentifier("col"))
	assert.False(t, PluginForDriver("hana").SupportsArrayBinding())
	assert.True(t, PluginForDriver("unknown-driver").SupportsArrayBinding())
}

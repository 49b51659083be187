package driver

import (
	"fmt"
	"strings"

	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// noopPlugin is the identity plugin used when no driver-specific plugin
// matches the detected driver name.
type noopPlugin struct{}

func (noopPlugin) Name() string                            { return "generic" }
func (noopPlugin) OptimizeQuery(sql string) string          { return sql }
func (noopPlugin) MapType(raw RawType) protocol.ColumnType  { return DefaultMapType(raw) }
func (noopPlugin) SupportsArrayBinding() bool               { return true }
func (noopPlugin) QuoteIdentifier(name string) string       { return fmt.Sprintf("%q", name) }
func (noopPlugin) Placeholder(i int) string                 { return "?" }

// NoopPlugin returns the identity DriverPlugin.
func NoopPlugin() DriverPlugin { return noopPlugin{} }

// sqlServerPlugin adds a textual optimizer hint and bracket-quoting, the
// only engine-recognized driver-specific rewriting (spec: "no query
// parsing or optimization beyond textual driver-specific hints").
type sqlServerPlugin struct{ noopPlugin }

func (sqlServerPlugin) Name() string { return "sqlserver" }
func (sqlServerPlugin) OptimizeQuery(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") && !strings.Contains(strings.ToUpper(trimmed), "OPTION (") {
		return trimmed + " OPTION (RECOMPILE)"
	}
	return sql
}
func (sqlServerPlugin) QuoteIdentifier(name string) string { return "[" + name + "]" }

// mysqlPlugin quotes identifiers with backticks, MySQL's dialect.
type mysqlPlugin struct{ noopPlugin }

func (mysqlPlugin) Name() string                       { return "mysql" }
func (mysqlPlugin) QuoteIdentifier(name string) string  { return "`" + name + "`" }

// postgresqlPlugin quotes identifiers with double quotes (the SQL-92 default,
// kept explicit since Postgres is case-sensitive inside quotes).
type postgresqlPlugin struct{ noopPlugin }

func (postgresqlPlugin) Name() string                      { return "postgresql" }
func (postgresqlPlugin) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (postgresqlPlugin) Placeholder(i int) string           { return fmt.Sprintf("$%d", i+1) }

// hanaPlugin mirrors SAP HANA's lack of native array-binding support in the
// driver binding this engine targets.
type hanaPlugin struct{ noopPlugin }

func (hanaPlugin) Name() string                 { return "hana" }
func (hanaPlugin) SupportsArrayBinding() bool    { return false }

// PluginForDriver returns the built-in DriverPlugin for a canonical driver
// name (as produced by DetectDriver), or the identity plugin if unknown.
func PluginForDriver(name string) DriverPlugin {
	switch name {
	case "sqlserver":
		return sqlServerPlugin{}
	case "mysql":
		return mysqlPlugin{}
	case "postgresql":
		return postgresqlPlugin{}
	case "hana":
		return hanaPlugin{}
	default:
		return noopPlugin{}
	}
}

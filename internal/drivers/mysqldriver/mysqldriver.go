// Package mysqldriver is the concrete driver binding wiring
// github.com/go-sql-driver/mysql behind the shared
// internal/drivers/sqldriver adapter.
package mysqldriver

import (
	_ "github.com/go-sql-driver/mysql"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/sqldriver"
)

const driverName = "mysql"

// Open opens a MySQL connection using a go-sql-driver/mysql DSN
// ("user:pass@tcp(host:port)/dbname").
func Open(dataSourceName string) (driver.Connection, error) {
	return sqldriver.Open(driverName, dataSourceName)
}

// NewEnvironment returns the shared no-op driver.Environment.
func NewEnvironment() driver.Environment { return sqldriver.Env{} }

// Package mssqldriver is the concrete driver binding wiring
// github.com/microsoft/go-mssqldb's database/sql driver behind the
// shared internal/drivers/sqldriver adapter.
package mssqldriver

import (
	_ "github.com/microsoft/go-mssqldb"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/sqldriver"
)

const driverName = "sqlserver"

// Open opens a SQL Server connection using an ADO-style connection
// string or "sqlserver://" URL.
func Open(dataSourceName string) (driver.Connection, error) {
	return sqldriver.Open(driverName, dataSourceName)
}

// NewEnvironment returns the shared no-op driver.Environment.
func NewEnvironment() driver.Environment { return sqldriver.Env{} }

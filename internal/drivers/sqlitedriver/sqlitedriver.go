// Package sqlitedriver is the concrete driver binding used as the
// engine's primary in-repo test backend, wiring modernc.org/sqlite
// behind the shared internal/drivers/sqldriver adapter.
package sqlitedriver

import (
	_ "modernc.org/sqlite"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/sqldriver"
)

const driverName = "sqlite"

// Open opens a SQLite database at dataSourceName (a file path, or
// ":memory:") as a driver.Connection.
func Open(dataSourceName string) (driver.Connection, error) {
	return sqldriver.Open(driverName, dataSourceName)
}

// NewEnvironment returns the shared no-op driver.Environment.
func NewEnvironment() driver.Environment { return sqldriver.Env{} }

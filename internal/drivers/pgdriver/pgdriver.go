// Package pgdriver is the concrete driver binding wiring
// github.com/jackc/pgx/v5's database/sql shim (stdlib) behind the
// shared internal/drivers/sqldriver adapter.
package pgdriver

import (
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/sqldriver"
)

const driverName = "pgx"

// Open opens a PostgreSQL connection using a libpq-style DSN or
// connection URL. Incoming "?" parameter markers are rewritten to
// pgx's "$1", "$2", ... form, since Postgres's wire protocol has no
// "?" marker of its own.
func Open(dataSourceName string) (driver.Connection, error) {
	return sqldriver.OpenNumbered(driverName, dataSourceName)
}

// NewEnvironment returns the shared no-op driver.Environment.
func NewEnvironment() driver.Environment { return sqldriver.Env{} }

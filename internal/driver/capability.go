// Package driver defines the abstract CLI driver capabilities the engine
// depends on. Concrete bindings (a real ODBC/JDBC-style driver) are
// external collaborators; this package only describes the shape the core
// needs, following the teacher's internal/backends.Backend family of
// interfaces (one interface per concern, no driver-specific logic here).
package driver

import (
	"context"

	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// Environment is the process-wide CLI environment handle. At most one is
// ever active; see the handle registry for that invariant.
type Environment interface {
	Close() error
}

// Connection is one driver connection, attached to an Environment.
type Connection interface {
	// Prepare compiles sql into a re-usable Statement.
	Prepare(ctx context.Context, sql string) (Statement, error)

	// ExecDirect executes sql with no parameters and no result set expected
	// (SET TRANSACTION ISOLATION LEVEL, SAVEPOINT, SELECT 1, ...).
	ExecDirect(ctx context.Context, sql string) error

	// SetAutocommit toggles the connection's autocommit mode.
	SetAutocommit(autocommit bool) error

	// EndTran commits (commit=true) or rolls back (commit=false) the
	// current manual-commit transaction (mirrors ODBC's SQLEndTran).
	EndTran(ctx context.Context, commit bool) error

	// Ping validates the connection is still usable (used by pool checkout
	// validation as the SELECT 1 probe target).
	Ping(ctx context.Context) error

	Close() error
}

// ColumnMeta describes one result-set column as reported by the driver.
type ColumnMeta struct {
	Name    string
	RawType RawType
}

// Statement is a prepared statement, re-created on every execute per
// spec §3 (the cache tracks fingerprints, not driver statement objects).
type Statement interface {
	// NumParams reports the number of parameter markers, or -1 if unknown.
	NumParams() int

	// Execute runs the statement with the given bound parameters. hasCursor
	// reports whether a result set was produced; when it is false,
	// rowsAffected carries the data-manipulation row count instead.
	// fetchSize is an optional hint the driver may ignore.
	Execute(ctx context.Context, params []protocol.ParamValue, timeoutSec int, fetchSize int) (cursor Cursor, hasCursor bool, rowsAffected int64, err error)

	// BindColumnar converts the statement into a columnar array-bound
	// inserter sized for up to capacity rows per execute (spec §4.11).
	BindColumnar(capacity int, specs []protocol.BulkColumnSpec) (ColumnarInserter, error)

	Close() error
}

// Cursor iterates a result set.
type Cursor interface {
	Columns() ([]ColumnMeta, error)

	// Next advances to the next row, returning false when exhausted.
	Next(ctx context.Context) (bool, error)

	GetText(col int) (value string, isNull bool, err error)
	GetBinary(col int) (value []byte, isNull bool, err error)

	// MoreResults advances to the next result set in a multi-result
	// statement. hasMore reports whether a next result exists at all; when
	// it does, hasCursor reports whether that result is a result set, and
	// rowsAffected carries the row count when it is not.
	MoreResults(ctx context.Context) (hasMore bool, hasCursor bool, rowsAffected int64, err error)

	Close() error
}

// ColumnarInserter is the array-bound insert target built by
// Statement.BindColumnar.
type ColumnarInserter interface {
	// SetRowCount sets the number of active rows for the next Execute.
	SetRowCount(n int) error

	SetInt32(col, row int, v int32, isNull bool) error
	SetInt64(col, row int, v int64, isNull bool) error
	SetText(col, row int, v []byte, isNull bool) error
	SetBinary(col, row int, v []byte, isNull bool) error
	SetTimestamp(col, row int, v protocol.Timestamp, isNull bool) error

	Execute(ctx context.Context) (rowsInserted int64, err error)
	Close() error
}

// DriverPlugin is optional, driver-specific rewriting consulted by the
// execution pipeline (spec §4.9) and array binding (spec §C.1).
type DriverPlugin interface {
	Name() string
	OptimizeQuery(sql string) string
	MapType(raw RawType) protocol.ColumnType
	SupportsArrayBinding() bool
	QuoteIdentifier(name string) string

	// Placeholder renders the bind-parameter marker for the i'th
	// parameter (0-based) in a generated statement. Most dialects use a
	// positional "?"; PostgreSQL uses numbered "$1", "$2", ...
	Placeholder(i int) string
}

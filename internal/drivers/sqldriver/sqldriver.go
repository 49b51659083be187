// Package sqldriver is the shared database/sql-backed implementation of
// the internal/driver capability interfaces. Every concrete driver
// package (sqlitedriver, mysqldriver, pgdriver, hdbdriver) is a thin
// wrapper that opens a database/sql.DB with its own driver name and
// hands it to this package, the same way FerretDB's
// internal/backends/sqlite builds its backend.Backend over one shared
// *sql.DB rather than a bespoke wire client per database.
//
// Array binding is approximated here as one ExecContext call per row
// inside one driver call, rather than a true native array bind — none
// of database/sql's standard interfaces expose a batched-parameter
// execute, so this is the common-denominator strategy every
// database/sql-backed ODBC-alike engine in the wild uses (see
// DESIGN.md).
package sqldriver

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/cesarcarlos/odbcengine/internal/driver"
)

// Env is the driver.Environment for every database/sql-backed binding:
// there is no process-wide handle to hold beyond what database/sql
// itself manages internally.
type Env struct{}

func (Env) Close() error { return nil }

// Conn wraps one *sql.DB as a driver.Connection.
type Conn struct {
	db            *sql.DB
	numberedParam bool
}

// Open opens dsn through driverName's registered database/sql driver,
// using the ODBC-universal "?" parameter marker.
func Open(driverName, dsn string) (*Conn, error) {
	return open(driverName, dsn, false)
}

// OpenNumbered is like Open, but rewrites incoming "?" parameter
// markers to the dialect's "$1", "$2", ... form before preparing —
// needed for drivers (e.g. pgx) whose wire protocol has no "?" marker
// of its own, since the engine's statement text always arrives with
// the ODBC-universal "?" style (spec §C.1).
func OpenNumbered(driverName, dsn string) (*Conn, error) {
	return open(driverName, dsn, true)
}

func open(driverName, dsn string, numberedParam bool) (*Conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &Conn{db: db, numberedParam: numberedParam}, nil
}

func (c *Conn) Prepare(ctx context.Context, sql string) (driver.Statement, error) {
	rendered := sql
	if c.numberedParam {
		rendered = rewriteToNumberedParams(sql)
	}
	stmt, err := c.db.PrepareContext(ctx, rendered)
	if err != nil {
		return nil, err
	}
	return &Stmt{db: c.db, stmt: stmt, sql: sql}, nil
}

// rewriteToNumberedParams replaces each bare "?" parameter marker
// outside of quoted string literals with "$1", "$2", ... in order.
func rewriteToNumberedParams(sqlText string) string {
	var b strings.Builder
	b.Grow(len(sqlText) + 8)
	n := 0
	inString := false
	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch {
		case ch == '\'':
			inString = !inString
			b.WriteByte(ch)
		case ch == '?' && !inString:
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func (c *Conn) ExecDirect(ctx context.Context, sql string) error {
	_, err := c.db.ExecContext(ctx, sql)
	return err
}

// SetAutocommit approximates ODBC's connection-scoped autocommit toggle
// as an explicit BEGIN; there is no database/sql API for it otherwise.
func (c *Conn) SetAutocommit(autocommit bool) error {
	if autocommit {
		return nil
	}
	_, err := c.db.Exec("BEGIN")
	return err
}

// EndTran issues COMMIT or ROLLBACK against the shared connection.
func (c *Conn) EndTran(ctx context.Context, commit bool) error {
	stmt := "ROLLBACK"
	if commit {
		stmt = "COMMIT"
	}
	_, err := c.db.ExecContext(ctx, stmt)
	return err
}

func (c *Conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Conn) Close() error { return c.db.Close() }

// looksLikeQuery is the textual sniff used to decide QueryContext vs.
// ExecContext, since database/sql has no driver-agnostic way to ask in
// advance whether a statement produces a result set (spec's "no query
// parsing beyond textual driver-specific hints" non-goal permits this
// kind of prefix sniff, distinct from parsing the statement itself).
func looksLikeQuery(sqlText string) bool {
	trimmed := strings.TrimSpace(sqlText)
	upper := strings.ToUpper(trimmed)
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

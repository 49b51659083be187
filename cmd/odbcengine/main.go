// Package main is a manual-test harness for internal/engine: it opens
// one connection, runs one query or one bulk-insert payload file through
// the engine exactly as a real C ABI shim would, and prints the decoded
// result. It is not a server and keeps no state across invocations.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/hdbdriver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/mssqldriver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/mysqldriver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/pgdriver"
	"github.com/cesarcarlos/odbcengine/internal/drivers/sqlitedriver"
	"github.com/cesarcarlos/odbcengine/internal/engine"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
	"github.com/cesarcarlos/odbcengine/internal/telemetry"
)

//nolint:lll // for readability
var cli struct {
	Conn string `help:"Connection string. Driver is auto-detected from its contents (spec detect_driver)." required:""`

	Query struct {
		SQL     string `arg:"" help:"SQL text to run."`
		Timeout int    `default:"0" help:"Query timeout in seconds (0 = none)."`
	} `cmd:"" help:"Run one query through exec_query_params and print the decoded result."`

	BulkInsert struct {
		File         string `arg:"" help:"Path to a protocol-v1-bulk-insert-payload file (see internal/protocol/bulkinsert.go)." type:"existingfile"`
		ParamsetSize int    `default:"1000" help:"Rows per driver round-trip."`
	} `cmd:"" help:"Run one bulk_insert_array call against a payload file."`

	Log struct {
		Level string `default:"info" help:"Log level: debug, info, warn, error."`
	} `embed:"" prefix:"log-"`

	OTel struct {
		TracesURL string `default:"" help:"OpenTelemetry OTLP/HTTP traces endpoint URL. Empty uses the console exporter."`
	} `embed:"" prefix:"otel-"`
}

func main() {
	kctx := kong.Parse(&cli, kong.Vars{
		"version": "odbcengine manual-test harness",
	})

	l, err := newLogger(cli.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer l.Sync() //nolint:errcheck // best-effort flush on exit

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exp, err := newExporter(ctx, l, cli.OTel.TracesURL)
	if err != nil {
		l.Fatal("build telemetry exporter", zap.Error(err))
	}
	defer exp.Shutdown(ctx) //nolint:errcheck // best-effort on exit

	eng := engine.New(l, prometheus.DefaultRegisterer, openerFor, engine.WithTelemetry(exp))
	if err := eng.Init(sqlitedriver.NewEnvironment()); err != nil {
		l.Fatal("init environment", zap.Error(err))
	}
	defer eng.Close() //nolint:errcheck // best-effort on exit

	connID, err := eng.Connect(ctx, cli.Conn)
	if err != nil {
		l.Fatal("connect", zap.Error(err))
	}
	defer eng.Disconnect(ctx, connID) //nolint:errcheck // best-effort on exit

	switch kctx.Command() {
	case "query <sql>":
		runQuery(ctx, eng, connID, cli.Query.SQL, cli.Query.Timeout)
	case "bulk-insert <file>":
		runBulkInsert(ctx, eng, connID, cli.BulkInsert.File, cli.BulkInsert.ParamsetSize)
	default:
		l.Fatal("unknown sub-command", zap.String("command", kctx.Command()))
	}
}

// openerFor dispatches a connection string to the matching concrete
// driver binding, selected the same way driver.DetectDriver picks a
// DriverPlugin (spec §1: concrete bindings are external to the core;
// this dispatch table is the "host" side of that boundary).
func openerFor(ctx context.Context, connStr string) (driver.Connection, error) {
	name, _ := driver.DetectDriver(connStr)
	switch name {
	case "postgresql":
		return pgdriver.Open(connStr)
	case "mysql":
		return mysqldriver.Open(connStr)
	case "sqlserver":
		return mssqldriver.Open(connStr)
	case "hana":
		return hdbdriver.Open(connStr)
	default:
		return sqlitedriver.Open(connStr)
	}
}

func runQuery(ctx context.Context, eng *engine.Engine, connID uint32, sql string, timeoutSec int) {
	result, err := eng.ExecQueryParams(ctx, connID, sql, nil, timeoutSec)
	if err != nil {
		fmt.Fprintln(os.Stderr, "exec_query_params failed:", eng.GetError(connID))
		os.Exit(1)
	}
	if !result.HasResultSet {
		fmt.Printf("rows affected: %d\n", result.RowsAffected)
		return
	}
	printRows(result.ResultSet)
}

func printRows(buf []byte) {
	rb, err := protocol.DecodeV1(buf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode result set:", err)
		os.Exit(1)
	}
	names := make([]string, len(rb.Columns))
	for i, c := range rb.Columns {
		names[i] = c.Name
	}
	fmt.Println(names)
	for _, row := range rb.Rows {
		vals := make([]string, len(row))
		for i, cell := range row {
			if cell.Null {
				vals[i] = "NULL"
				continue
			}
			vals[i] = string(cell.Value)
		}
		fmt.Println(vals)
	}
}

func runBulkInsert(ctx context.Context, eng *engine.Engine, connID uint32, path string, paramsetSize int) {
	buf, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read payload file:", err)
		os.Exit(1)
	}
	n, err := eng.BulkInsertArray(ctx, connID, buf, paramsetSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bulk_insert_array failed:", eng.GetError(connID))
		os.Exit(1)
	}
	fmt.Printf("rows inserted: %d\n", n)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

func newExporter(ctx context.Context, l *zap.Logger, otlpURL string) (telemetry.Exporter, error) {
	if otlpURL == "" {
		return telemetry.NewConsole(l), nil
	}
	return telemetry.NewOTLP(ctx, otlpURL)
}

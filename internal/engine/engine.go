// Package engine is the orchestration layer that wires the registry,
// execution pipeline, streaming engine, bulk-insert engine, connection
// pool, transaction controller, and telemetry exporter together behind
// one API, shaped after spec §6.1's C ABI entry-point table but exposed
// as idiomatic Go methods instead of raw pointer/length arguments — the
// engine is the thing a real C ABI shim (out of scope per spec §1)
// would call into. Grounded on FerretDB's top-level Handler
// (internal/handler), which plays exactly this role: one struct gluing
// together otherwise-independent subsystems behind a single request
// dispatch surface.
package engine

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/pool"
	"github.com/cesarcarlos/odbcengine/internal/registry"
	"github.com/cesarcarlos/odbcengine/internal/telemetry"
)

// Opener opens one driver.Connection against connStr. The core depends
// on this abstract capability only; concrete driver bindings
// (internal/drivers/*) are external collaborators supplied by the host
// (spec §1: "concrete CLI driver bindings" are out of scope for the core).
type Opener func(ctx context.Context, connStr string) (driver.Connection, error)

// DefaultStatementCacheSize bounds each connection's prepared-statement
// cache when the host doesn't override it.
const DefaultStatementCacheSize = 256

// Engine is the process-wide orchestrator. One Engine corresponds to one
// C ABI shim instance (spec §5: "environment leaked to process lifetime").
type Engine struct {
	reg       *registry.Registry
	l         *zap.Logger
	opener    Opener
	cacheSize int
	telemetry telemetry.Exporter
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithStatementCacheSize overrides DefaultStatementCacheSize.
func WithStatementCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// WithTelemetry attaches an exporter used to record a best-effort span
// around every query-shaped operation (spec §6.3). Telemetry failures
// never fail the underlying call.
func WithTelemetry(exp telemetry.Exporter) Option {
	return func(e *Engine) { e.telemetry = exp }
}

// New constructs an Engine. opener is the host's driver-connection
// factory (typically dispatching on driver.DetectDriver's canonical
// name to one of internal/drivers/*). reg may be nil to skip Prometheus
// registration (e.g. in tests).
func New(l *zap.Logger, reg prometheus.Registerer, opener Opener, opts ...Option) *Engine {
	e := &Engine{
		reg:       registry.NewWithMetrics(l, reg),
		l:         l,
		opener:    opener,
		cacheSize: DefaultStatementCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// span records a best-effort telemetry span if an exporter is attached.
func (e *Engine) span(ctx context.Context, name string, attrs map[string]string, err error) {
	if e.telemetry == nil {
		return
	}
	e.telemetry.RecordSpan(ctx, name, attrs, err)
}

// recordQuery folds d/err into the registry's process-global metrics
// and, when ch is non-nil, into that connection's own counters (spec
// §C.3: "connection-level statistics").
func (e *Engine) recordQuery(ch *registry.ConnHandle, start time.Time, err error) {
	e.reg.Metrics().RecordQuery(time.Since(start), err != nil)
	if ch != nil {
		ch.RecordQuery(err != nil)
	}
}

// Init installs env as the process-wide driver environment (spec §6.1
// "init"). env is supplied by the host alongside the Opener, since both
// originate from the same concrete driver binding.
func (e *Engine) Init(env driver.Environment) error {
	return e.recordError(0, e.reg.InitEnvironment(env))
}

// Close tears down the environment and every handle still attached to
// it (spec §5: "environment is leaked to process lifetime" — Close is
// the explicit opt-out used by tests and graceful shutdown).
func (e *Engine) Close() error {
	if e.telemetry != nil {
		_ = e.telemetry.Shutdown(context.Background())
	}
	return e.reg.CloseEnvironment()
}

// Connect opens a new connection through the host-supplied Opener and
// registers it, selecting a driver.DriverPlugin from the connection
// string's detected driver (spec §6.1 "connect").
func (e *Engine) Connect(ctx context.Context, connStr string) (uint32, error) {
	if connStr == "" {
		return 0, e.recordError(0, odbcerr.ErrEmptyConnectionString)
	}
	if _, err := e.reg.Environment(); err != nil {
		return 0, e.recordError(0, err)
	}

	name, _ := driver.DetectDriver(connStr)
	plugin := driver.PluginForDriver(name)
	driverConnStr := pool.StripKeys(connStr, pool.TestOnCheckoutKeys...)

	conn, err := e.opener(ctx, driverConnStr)
	if err != nil {
		return 0, e.recordError(0, odbcerr.New(odbcerr.KindOdbcAPI, "connect: "+err.Error()))
	}

	connID, err := e.reg.RegisterConnection(conn, pool.Sanitize(driverConnStr), plugin, e.cacheSize)
	if err != nil {
		_ = conn.Close()
		return 0, e.recordError(0, err)
	}
	return connID, nil
}

// ConnectWithTimeout is Connect bounded by an explicit deadline (spec
// §6.1 "connect_with_timeout").
func (e *Engine) ConnectWithTimeout(ctx context.Context, connStr string, timeoutMs int) (uint32, error) {
	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}
	return e.Connect(ctx, connStr)
}

// Disconnect closes and removes connID, cascading to its transaction and
// prepared statements (spec §6.1 "disconnect").
func (e *Engine) Disconnect(ctx context.Context, connID uint32) error {
	return e.recordError(0, e.reg.Disconnect(ctx, connID))
}

// DetectDriver is the Go-level form of spec §6.1's "detect_driver":
// reports the canonical driver name for connStr, or "unknown".
func DetectDriver(connStr string) (name string, detected bool) {
	return driver.DetectDriver(connStr)
}

// pluginFor returns the ConnHandle's driver plugin, defaulting to the
// identity plugin.
func pluginFor(h *registry.ConnHandle) driver.DriverPlugin {
	if h.Plugin == nil {
		return driver.NoopPlugin()
	}
	return h.Plugin
}

// GetError returns connID's last recorded error, or the global slot's if
// connID is 0 or has none recorded (spec §6.1 "get_error").
func (e *Engine) GetError(connID uint32) *odbcerr.Error {
	return e.reg.LastError(connID)
}

// GetStructuredError returns connID's last error's wire form, or nil if
// the last error wasn't a KindStructured diagnostic (spec §6.1
// "get_structured_error").
func (e *Engine) GetStructuredError(connID uint32) []byte {
	err := e.reg.LastError(connID)
	if err == nil || err.Kind != odbcerr.KindStructured {
		return nil
	}
	return err.Serialize()
}

// recordError mirrors the ABI's "errors never unwind past the boundary"
// rule: every public Engine method that can fail calls this before
// returning so GetError/GetStructuredError can see it afterward.
func (e *Engine) recordError(connID uint32, err error) error {
	if err == nil {
		return nil
	}
	oe, ok := err.(*odbcerr.Error)
	if !ok {
		oe = odbcerr.NewOdbcAPI(err.Error())
	}
	e.reg.SetError(connID, oe)
	return oe
}

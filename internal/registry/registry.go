// Package registry implements the process-wide handle registry (spec
// §4.14): the single owner of every ID-keyed object the engine hands
// back across the ABI boundary (environment, connections, transactions,
// statements, streams, pools, pooled connections) plus the per-handle
// and global last-error slots. Grounded on FerretDB's
// internal/clientconn/cursor.Registry and internal/backends/sqlite's
// map-of-handles-behind-one-mutex pattern: a single struct holds every
// map, guarded by one lock, with monotonic ID counters instead of
// reusing freed small integers (except for pooled-connection IDs, which
// the spec requires to be recycled through a free list).
package registry

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// pooledConnIDBase is the first ID ever handed out for a pooled
// connection handle, kept disjoint from plain connection IDs so a stray
// handle from one family can never alias into the other (spec §4.14).
const pooledConnIDBase = 1_000_000

// Registry is the single process-wide handle table. The zero value is
// not usable; construct with New.
type Registry struct {
	mu       sync.Mutex
	poisoned bool
	l        *zap.Logger

	env            driver.Environment
	envInitialized bool

	connections map[uint32]*ConnHandle
	statements  map[uint32]*StmtHandle
	streams     map[uint32]Stream
	pools       map[uint32]*PoolHandle
	pooledConns map[uint32]*PooledConnHandle

	poolFreeList map[uint32][]uint32 // pool ID -> free pooled-connection IDs

	nextConnID       uint32
	nextStmtID       uint32
	nextStreamID     uint32
	nextPoolID       uint32
	nextPooledConnID uint32

	globalErr  *odbcerr.Error
	connErrors map[uint32]*odbcerr.Error

	metrics *Metrics
}

// New constructs an empty registry. Its Prometheus metrics are
// unregistered (reg=nil); use NewWithMetrics to attach a registerer.
func New(l *zap.Logger) *Registry {
	return NewWithMetrics(l, nil)
}

// NewWithMetrics constructs an empty registry whose metric set is
// registered against reg (may be nil to skip registration, e.g. in tests).
func NewWithMetrics(l *zap.Logger, reg prometheus.Registerer) *Registry {
	return &Registry{
		l:                l,
		connections:      make(map[uint32]*ConnHandle),
		statements:       make(map[uint32]*StmtHandle),
		streams:          make(map[uint32]Stream),
		pools:            make(map[uint32]*PoolHandle),
		pooledConns:      make(map[uint32]*PooledConnHandle),
		poolFreeList:     make(map[uint32][]uint32),
		nextConnID:       1,
		nextStmtID:       1,
		nextStreamID:     1,
		nextPoolID:       1,
		nextPooledConnID: pooledConnIDBase,
		connErrors:       make(map[uint32]*odbcerr.Error),
		metrics:          NewMetrics(reg),
	}
}

// Metrics returns the registry's metric set, for recording query
// outcomes and for get_metrics snapshots.
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// Stream is the subset of internal/stream's stream types the registry
// needs in order to own and close them generically.
type Stream interface {
	Close() error
}

// withLock runs fn under the registry's mutex. If the registry was
// already poisoned by a prior panic, or fn itself panics, the call
// returns a KindInternalError failure instead of propagating the panic
// to the caller — the Go analogue of a poisoned std::sync::Mutex
// surfacing as an Err rather than aborting the process.
func withLock[T any](r *Registry, fn func() (T, error)) (result T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned {
		return result, odbcerr.NewInternal("registry is poisoned by a prior panic; reinitialize the environment")
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.poisoned = true
			var zero T
			result = zero
			err = odbcerr.NewInternal(fmt.Sprintf("registry: recovered from panic: %v", rec))
			r.l.Error("registry operation panicked; registry is now poisoned", zap.Any("panic", rec))
		}
	}()

	result, err = fn()
	return
}

// withLockErr is withLock for operations with no result value.
func withLockErr(r *Registry, fn func() error) error {
	_, err := withLock(r, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// InitEnvironment installs env as the process-wide environment handle.
// Re-initializing while already initialized is idempotent and simply
// succeeds without replacing the existing handle (spec §3: "re-
// initialization is idempotent"; ported from test_ffi_init in
// _examples/original_source/native/odbc_engine/src/ffi/mod.rs).
func (r *Registry) InitEnvironment(env driver.Environment) error {
	return withLockErr(r, func() error {
		if r.envInitialized {
			return nil
		}
		r.env = env
		r.envInitialized = true
		return nil
	})
}

// Environment returns the active environment, or ErrEnvironmentNotInitialized.
func (r *Registry) Environment() (driver.Environment, error) {
	return withLock(r, func() (driver.Environment, error) {
		if !r.envInitialized {
			return nil, odbcerr.ErrEnvironmentNotInitialized
		}
		return r.env, nil
	})
}

// CloseEnvironment tears down the environment and every handle still
// attached to it (spec §4.3: closing the environment cascades).
func (r *Registry) CloseEnvironment() error {
	return withLockErr(r, func() error {
		if !r.envInitialized {
			return nil
		}
		for id, s := range r.streams {
			_ = s.Close()
			delete(r.streams, id)
		}
		for id, c := range r.connections {
			_ = c.Conn.Close()
			delete(r.connections, id)
		}
		for id := range r.statements {
			delete(r.statements, id)
		}
		for id, p := range r.pools {
			_ = p.Pool.Close()
			delete(r.pools, id)
		}
		for id := range r.pooledConns {
			delete(r.pooledConns, id)
		}
		if r.env != nil {
			_ = r.env.Close()
		}
		r.env = nil
		r.envInitialized = false
		return nil
	})
}

package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// DefaultCheckoutTimeout is used when a pool is created without an
// explicit timeout (spec §4.13: "30s checkout timeout").
const DefaultCheckoutTimeout = 30 * time.Second

// TestOnCheckoutEnvVar is the environment-variable fallback consulted
// when a pool's connection string doesn't itself specify
// test_on_check_out (spec §4.12: "connection-string value wins; else
// env var; else default true"). Resolution happens in the caller
// (internal/engine's lookupTestOnCheckout) before New is ever called;
// New just takes the already-resolved value.
const TestOnCheckoutEnvVar = "ODBC_POOL_TEST_ON_CHECKOUT"

// Factory opens one new driver.Connection for the pool.
type Factory func(ctx context.Context) (driver.Connection, error)

// State is a point-in-time snapshot of pool occupancy.
type State struct {
	MaxSize int
	NumOpen int
	NumIdle int
	NumInUse int
}

// Stats is a point-in-time health snapshot of a pool's checkout
// activity, supplementing State with lifetime counters (spec §C.5:
// "pool health snapshot").
type Stats struct {
	CheckoutsTotal        uint64
	CheckoutFailuresTotal uint64
}

// Pool is a fixed-maximum-size, lazily-populated set of driver
// connections sharing one identity (spec §4.13).
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	identity        string
	maxSize         int
	checkoutTimeout time.Duration
	testOnCheckout  bool
	factory         Factory

	idle    []driver.Connection
	numOpen int
	closed  bool

	checkoutsTotal        uint64
	checkoutFailuresTotal uint64

	l *zap.Logger
}

// New constructs a pool. testOnCheckout is the already-resolved value
// (connection string, then env var, then default true — see
// TestOnCheckoutEnvVar); New applies it as given.
func New(identity string, maxSize int, testOnCheckout bool, factory Factory, l *zap.Logger) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	p := &Pool{
		identity:        identity,
		maxSize:         maxSize,
		checkoutTimeout: DefaultCheckoutTimeout,
		testOnCheckout:  testOnCheckout,
		factory:         factory,
		l:               l,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Checkout returns an idle connection or lazily opens a new one, up to
// maxSize. If the pool is exhausted it waits up to the checkout
// timeout for one to be released, returning a KindPoolError on timeout.
func (p *Pool) Checkout(ctx context.Context) (driver.Connection, error) {
	conn, err := p.checkout(ctx)
	p.mu.Lock()
	if err != nil {
		p.checkoutFailuresTotal++
	} else {
		p.checkoutsTotal++
	}
	p.mu.Unlock()
	return conn, err
}

func (p *Pool) checkout(ctx context.Context) (driver.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	timedOut := false
	timer := time.AfterFunc(p.checkoutTimeout, func() {
		p.mu.Lock()
		timedOut = true
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	for {
		if p.closed {
			return nil, odbcerr.NewPool("pool is closed")
		}
		if len(p.idle) > 0 {
			conn := p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
			if p.testOnCheckout {
				p.mu.Unlock()
				err := p.validate(ctx, conn)
				p.mu.Lock()
				if err != nil {
					_ = conn.Close()
					p.numOpen--
					p.cond.Broadcast()
					continue
				}
			}
			return conn, nil
		}
		if p.numOpen < p.maxSize {
			p.numOpen++
			p.mu.Unlock()
			conn, err := p.factory(ctx)
			p.mu.Lock()
			if err != nil {
				p.numOpen--
				p.cond.Broadcast()
				return nil, odbcerr.New(odbcerr.KindOdbcAPI, "open pooled connection: "+err.Error())
			}
			return conn, nil
		}
		if timedOut {
			return nil, odbcerr.NewPool("checkout timed out waiting for a connection")
		}
		p.cond.Wait()
	}
}

// validate resets autocommit and runs the SELECT 1 probe (spec §4.13:
// "test_on_check_out validation resetting autocommit + SELECT 1").
func (p *Pool) validate(ctx context.Context, conn driver.Connection) error {
	if err := conn.SetAutocommit(true); err != nil {
		return err
	}
	return conn.Ping(ctx)
}

// Release returns conn to the idle set, waking one waiting checkout.
func (p *Pool) Release(conn driver.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = conn.Close()
		p.numOpen--
		p.cond.Broadcast()
		return
	}
	p.idle = append(p.idle, conn)
	p.cond.Broadcast()
}

// HealthCheck probes one idle connection without removing it from
// rotation, or succeeds trivially if the pool has no idle connections.
func (p *Pool) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	if len(p.idle) == 0 {
		p.mu.Unlock()
		return nil
	}
	conn := p.idle[0]
	p.mu.Unlock()
	return conn.Ping(ctx)
}

// State returns a snapshot of pool occupancy.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		MaxSize:  p.maxSize,
		NumOpen:  p.numOpen,
		NumIdle:  len(p.idle),
		NumInUse: p.numOpen - len(p.idle),
	}
}

// Stats returns a snapshot of lifetime checkout counters (spec §C.5).
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		CheckoutsTotal:        p.checkoutsTotal,
		CheckoutFailuresTotal: p.checkoutFailuresTotal,
	}
}

// Close closes every idle connection and marks the pool closed;
// in-flight checked-out connections are closed as they're released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var firstErr error
	for _, c := range p.idle {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.idle = nil
	p.cond.Broadcast()
	return firstErr
}

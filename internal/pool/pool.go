// Package pool implements the bounded MySQL connection pool behind mymcp:
// LIFO reuse of idle sessions, a capped overflow allowance on top of the
// retained size, age-based recycling, and a pre-handout liveness probe, all
// over plain database/sql/driver connections.
package pool

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors callers discriminate with errors.Is.
var (
	// ErrPoolExhausted means no connection slot became available within the
	// acquisition wait bound. Retryable.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrConnectFailed means a connection could not be established, or an
	// idle connection failed its liveness probe twice in one acquisition.
	ErrConnectFailed = errors.New("database connection failed")

	// ErrClosed means the pool has been closed.
	ErrClosed = errors.New("connection pool closed")
)

// Config sizes a Pool. Size is the retained idle capacity, MaxOverflow the
// number of transient extra connections allowed on top of it. An idle
// connection older than Recycle is discarded instead of handed out.
type Config struct {
	Size           int
	MaxOverflow    int
	Recycle        time.Duration
	AcquireTimeout time.Duration
	Logger         zerolog.Logger
}

// Pool owns up to Size+MaxOverflow live connections, dialed lazily through
// a driver.Connector. Acquire blocks while every slot is checked out.
// Bookkeeping is mutex-guarded; statement execution on a checked-out Conn
// never holds the pool lock.
type Pool struct {
	connector      driver.Connector
	size           int
	maxOverflow    int
	recycle        time.Duration
	acquireTimeout time.Duration
	logger         zerolog.Logger
	now            func() time.Time

	// permits holds one token per checked-out connection. A dial only ever
	// happens with a permit held and the idle stack empty, which keeps the
	// number of open connections within Size+MaxOverflow.
	permits chan struct{}

	mu     sync.Mutex
	idle   []*Conn // LIFO: most recently released at the end
	nextID uint64
	closed bool

	closeCh chan struct{}

	acquires       atomic.Int64
	emptyAcquires  atomic.Int64
	dials          atomic.Int64
	recycled       atomic.Int64
	probeFailures  atomic.Int64
	overflowClosed atomic.Int64
}

// Stat is a point-in-time snapshot of pool counters.
type Stat struct {
	Size           int
	MaxOverflow    int
	Idle           int
	CheckedOut     int
	Acquires       int64
	EmptyAcquires  int64
	Dials          int64
	Recycled       int64
	ProbeFailures  int64
	OverflowClosed int64
}

// New builds a Pool around the given connector. No connection is dialed
// until the first Acquire. Panics on invalid sizing; sizing comes from
// validated config, so a bad value here is a programmer error.
func New(connector driver.Connector, config Config) *Pool {
	if connector == nil {
		panic("pool: connector must not be nil")
	}
	if config.Size < 1 {
		panic("pool: size must be >= 1")
	}
	if config.MaxOverflow < 0 {
		panic("pool: max overflow must be >= 0")
	}
	if config.Recycle <= 0 {
		panic("pool: recycle must be > 0")
	}
	return &Pool{
		connector:      connector,
		size:           config.Size,
		maxOverflow:    config.MaxOverflow,
		recycle:        config.Recycle,
		acquireTimeout: config.AcquireTimeout,
		logger:         config.Logger,
		now:            time.Now,
		permits:        make(chan struct{}, config.Size+config.MaxOverflow),
		idle:           make([]*Conn, 0, config.Size),
		closeCh:        make(chan struct{}),
	}
}

// Acquire returns a live connection, preferring the most recently released
// idle one and dialing fresh when the stack is empty. It blocks while all
// Size+MaxOverflow slots are checked out, until a slot frees up, the
// context is done, or the configured acquire timeout elapses.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.acquires.Add(1)

	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	// 1. Take a checkout permit. Waiting here is the exhaustion path.
	select {
	case p.permits <- struct{}{}:
	case <-p.closeCh:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, errors.Join(ErrPoolExhausted,
			fmt.Errorf("all %d connection slots in use: %w", cap(p.permits), ctx.Err()))
	}

	conn, err := p.checkout(ctx)
	if err != nil {
		<-p.permits
		return nil, err
	}
	return conn, nil
}

// checkout hands out an idle connection, discarding stale or dead ones
// along the way, and dials when the stack runs dry. One failed liveness
// probe substitutes another candidate; a second failure gives up.
func (p *Pool) checkout(ctx context.Context) (*Conn, error) {
	probeFailures := 0
	for {
		conn, ok := p.popIdle()
		if !ok {
			p.emptyAcquires.Add(1)
			return p.dial(ctx)
		}

		// 2. Recycle by age. A stale connection is never handed out; the
		// caller sees only the fresh substitute.
		if conn.expired() {
			p.recycled.Add(1)
			p.discard(conn)
			p.logger.Debug().Uint64("conn_id", conn.id).Dur("age", conn.age()).Msg("idle connection recycled")
			continue
		}

		// 3. Probe liveness before handout. Freshly dialed connections skip
		// this: the dial itself just proved the session works.
		if err := conn.Ping(ctx); err != nil {
			p.probeFailures.Add(1)
			p.discard(conn)
			probeFailures++
			if probeFailures > 1 {
				return nil, errors.Join(ErrConnectFailed,
					fmt.Errorf("liveness probe failed twice: %w", err))
			}
			p.logger.Warn().Uint64("conn_id", conn.id).Err(err).Msg("liveness probe failed, substituting connection")
			continue
		}

		p.mu.Lock()
		conn.state = stateCheckedOut
		p.mu.Unlock()
		return conn, nil
	}
}

// dial opens a fresh connection through the connector. Callers hold a
// permit, so open connections stay within the pool bound.
func (p *Pool) dial(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	raw, err := p.connector.Connect(ctx)
	if err != nil {
		return nil, errors.Join(ErrConnectFailed, err)
	}
	p.dials.Add(1)

	p.mu.Lock()
	p.nextID++
	conn := &Conn{
		pool:       p,
		raw:        raw,
		id:         p.nextID,
		state:      stateCheckedOut,
		createdAt:  p.now(),
		lastUsedAt: p.now(),
	}
	p.mu.Unlock()

	p.logger.Debug().Uint64("conn_id", conn.id).Msg("connection opened")
	return conn, nil
}

// release puts a connection back on the idle stack, or closes it when the
// stack already holds Size connections (the overflow allowance is
// transient), the session is broken or stale, or the pool is closed. The
// checkout permit is returned last.
func (p *Pool) release(conn *Conn) {
	p.mu.Lock()
	if conn.state != stateCheckedOut {
		p.mu.Unlock()
		return
	}
	poolClosed := p.closed
	expired := conn.expired()
	keep := !poolClosed && !conn.broken && !expired && len(p.idle) < p.size
	if keep {
		conn.state = stateIdle
		conn.lastUsedAt = p.now()
		p.idle = append(p.idle, conn)
	} else {
		conn.state = stateClosed
	}
	broken := conn.broken
	p.mu.Unlock()

	if !keep {
		conn.closeRaw()
		switch {
		case poolClosed:
			// Close already logged the shutdown.
		case broken:
			p.logger.Warn().Uint64("conn_id", conn.id).Msg("broken connection closed on release")
		case expired:
			p.recycled.Add(1)
			p.logger.Debug().Uint64("conn_id", conn.id).Msg("stale connection closed on release")
		default:
			p.overflowClosed.Add(1)
			p.logger.Debug().Uint64("conn_id", conn.id).Msg("overflow connection closed on release")
		}
	}
	<-p.permits
}

// Close closes every idle connection and fails all further Acquires with
// ErrClosed. Connections checked out at call time are closed when their
// holders release them.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	for _, conn := range idle {
		conn.state = stateClosed
	}
	p.mu.Unlock()

	close(p.closeCh)
	for _, conn := range idle {
		conn.closeRaw()
	}
	p.logger.Debug().Int("idle_closed", len(idle)).Msg("connection pool closed")
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stat {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return Stat{
		Size:           p.size,
		MaxOverflow:    p.maxOverflow,
		Idle:           idle,
		CheckedOut:     len(p.permits),
		Acquires:       p.acquires.Load(),
		EmptyAcquires:  p.emptyAcquires.Load(),
		Dials:          p.dials.Load(),
		Recycled:       p.recycled.Load(),
		ProbeFailures:  p.probeFailures.Load(),
		OverflowClosed: p.overflowClosed.Load(),
	}
}

func (p *Pool) popIdle() (*Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil, false
	}
	conn := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return conn, true
}

// discard closes a connection that was popped from the idle stack without
// ever reaching a caller.
func (p *Pool) discard(conn *Conn) {
	p.mu.Lock()
	conn.state = stateClosed
	p.mu.Unlock()
	conn.closeRaw()
}

package pool

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// connState tracks where a connection is in its checkout lifecycle.
type connState int

const (
	stateIdle connState = iota
	stateCheckedOut
	stateClosed
)

// Conn is a single database session owned by a Pool. While idle it belongs
// exclusively to the pool; while checked out it belongs exclusively to one
// caller and must not be shared across goroutines.
type Conn struct {
	pool *Pool
	raw  driver.Conn
	id   uint64

	state      connState // guarded by pool.mu
	broken     bool      // written by the checkout owner, read at release
	createdAt  time.Time
	lastUsedAt time.Time // guarded by pool.mu
}

// Release returns the connection to its pool. The caller must not touch the
// connection afterwards. Calling Release more than once is a no-op.
func (c *Conn) Release() {
	c.pool.release(c)
}

// QueryContext runs a query on the checked-out connection. Argument values
// go through the driver's named-value conversion, never into the SQL text.
func (c *Conn) QueryContext(ctx context.Context, query string, args []any) (driver.Rows, error) {
	q, ok := c.raw.(driver.QueryerContext)
	if !ok {
		return nil, errors.New("driver does not support QueryContext")
	}
	nvs, err := c.namedValues(args)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, nvs)
	if err != nil {
		c.noteError(err)
		return nil, err
	}
	return rows, nil
}

// ExecContext runs a statement on the checked-out connection and reports
// its effect.
func (c *Conn) ExecContext(ctx context.Context, query string, args []any) (driver.Result, error) {
	e, ok := c.raw.(driver.ExecerContext)
	if !ok {
		return nil, errors.New("driver does not support ExecContext")
	}
	nvs, err := c.namedValues(args)
	if err != nil {
		return nil, err
	}
	res, err := e.ExecContext(ctx, query, nvs)
	if err != nil {
		c.noteError(err)
		return nil, err
	}
	return res, nil
}

// BeginTx opens a transaction on the checked-out connection.
func (c *Conn) BeginTx(ctx context.Context) (driver.Tx, error) {
	b, ok := c.raw.(driver.ConnBeginTx)
	if !ok {
		return nil, errors.New("driver does not support BeginTx")
	}
	tx, err := b.BeginTx(ctx, driver.TxOptions{})
	if err != nil {
		c.noteError(err)
		return nil, err
	}
	return tx, nil
}

// Ping probes session liveness through the driver. Drivers without a Pinger
// are assumed live.
func (c *Conn) Ping(ctx context.Context) error {
	p, ok := c.raw.(driver.Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// age returns how long the connection has existed.
func (c *Conn) age() time.Duration {
	return c.pool.now().Sub(c.createdAt)
}

// expired reports whether the connection has outlived the pool's recycle
// age.
func (c *Conn) expired() bool {
	return c.age() > c.pool.recycle
}

// namedValues converts caller arguments to driver named values, running
// each through the driver's own checker when it provides one.
func (c *Conn) namedValues(args []any) ([]driver.NamedValue, error) {
	if len(args) == 0 {
		return nil, nil
	}
	checker, hasChecker := c.raw.(driver.NamedValueChecker)
	nvs := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		nv := driver.NamedValue{Ordinal: i + 1, Value: arg}
		if hasChecker {
			err := checker.CheckNamedValue(&nv)
			if err == nil {
				nvs[i] = nv
				continue
			}
			if !errors.Is(err, driver.ErrSkip) {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
		}
		converted, err := driver.DefaultParameterConverter.ConvertValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		nv.Value = converted
		nvs[i] = nv
	}
	return nvs, nil
}

// noteError flags the connection as unusable when the driver reports a dead
// session, so release closes it instead of returning it to the idle stack.
func (c *Conn) noteError(err error) {
	if errors.Is(err, driver.ErrBadConn) {
		c.broken = true
	}
}

func (c *Conn) closeRaw() {
	_ = c.raw.Close()
}

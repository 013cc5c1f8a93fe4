// Package fakedb is a scripted database/sql/driver implementation backing
// the unit suites in place of a live MySQL server. A Script maps statement
// text to canned outcomes, and the Connector records dials, pings, closes,
// and transaction events so tests can assert on pool and executor behavior.
package fakedb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Call records one executed statement with its bound argument values.
type Call struct {
	SQL  string
	Args []driver.Value
}

type queryResult struct {
	columns []string
	rows    [][]driver.Value
	err     error
}

type execResult struct {
	lastInsertID int64
	rowsAffected int64
	err          error
}

// Script holds canned statement outcomes shared by every connection of a
// Connector. Lookup tries an exact match first, then any registered key
// that is a substring of the executed SQL, so multi-line statements can be
// scripted by a distinctive fragment.
type Script struct {
	mu      sync.Mutex
	queries map[string]queryResult
	execs   map[string]execResult
	calls   []Call
	events  []string
}

func NewScript() *Script {
	return &Script{
		queries: map[string]queryResult{},
		execs:   map[string]execResult{},
	}
}

// OnQuery registers a result set for query statements matching key.
func (s *Script) OnQuery(key string, columns []string, rows ...[]driver.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[key] = queryResult{columns: columns, rows: rows}
}

// OnQueryErr registers a failure for query statements matching key.
func (s *Script) OnQueryErr(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[key] = queryResult{err: err}
}

// OnExec registers an outcome for exec statements matching key.
func (s *Script) OnExec(key string, lastInsertID, rowsAffected int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[key] = execResult{lastInsertID: lastInsertID, rowsAffected: rowsAffected}
}

// OnExecErr registers a failure for exec statements matching key.
func (s *Script) OnExecErr(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[key] = execResult{err: err}
}

// Calls returns every executed statement with its arguments, in order.
func (s *Script) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Events returns the lifecycle log: DIAL, PING, CLOSE, BEGIN, COMMIT,
// ROLLBACK, and QUERY/EXEC entries with collapsed statement text, in
// occurrence order.
func (s *Script) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Script) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *Script) recordCall(sql string, args []driver.NamedValue) {
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{SQL: sql, Args: vals})
}

func (s *Script) lookupQuery(sql string) (queryResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.queries[sql]; ok {
		return res, true
	}
	for key, res := range s.queries {
		if strings.Contains(sql, key) {
			return res, true
		}
	}
	return queryResult{}, false
}

func (s *Script) lookupExec(sql string) (execResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.execs[sql]; ok {
		return res, true
	}
	for key, res := range s.execs {
		if strings.Contains(sql, key) {
			return res, true
		}
	}
	return execResult{}, false
}

// Connector hands out fake connections. Use NewConnector; the zero value
// has no Script.
type Connector struct {
	script *Script

	mu           sync.Mutex
	dialErr      error
	pingErr      error
	pingFailures int
	conns        []*Conn
	dialCount    int
}

func NewConnector(script *Script) *Connector {
	if script == nil {
		script = NewScript()
	}
	return &Connector{script: script}
}

// Script returns the script shared by this connector's connections.
func (c *Connector) Script() *Script { return c.script }

// SetDialErr makes subsequent Connect calls fail with err until cleared
// with nil.
func (c *Connector) SetDialErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialErr = err
}

// FailPings makes the next n liveness probes fail with err, across all
// connections of this connector.
func (c *Connector) FailPings(err error, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
	c.pingFailures = n
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.dialErr != nil {
		err := c.dialErr
		c.mu.Unlock()
		return nil, err
	}
	c.dialCount++
	conn := &Conn{connector: c, id: c.dialCount}
	c.conns = append(c.conns, conn)
	c.mu.Unlock()
	c.script.record("DIAL")
	return conn, nil
}

func (c *Connector) Driver() driver.Driver { return nil }

// DialCount returns the number of successful Connect calls.
func (c *Connector) DialCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialCount
}

// Conns returns every connection ever dialed, in dial order.
func (c *Connector) Conns() []*Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Conn, len(c.conns))
	copy(out, c.conns)
	return out
}

// OpenCount returns the number of dialed connections not yet closed.
func (c *Connector) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	open := 0
	for _, conn := range c.conns {
		conn.mu.Lock()
		if !conn.closed {
			open++
		}
		conn.mu.Unlock()
	}
	return open
}

func (c *Connector) takePingErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingFailures > 0 {
		c.pingFailures--
		return c.pingErr
	}
	return nil
}

// Conn is one fake session. It implements the optional driver interfaces
// the pool relies on: Pinger, QueryerContext, ExecerContext, ConnBeginTx.
type Conn struct {
	connector *Connector
	id        int

	mu     sync.Mutex
	closed bool
	pings  int
}

// ID returns the 1-based dial order of this connection.
func (c *Conn) ID() int { return c.id }

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Pings returns how many times this connection was probed.
func (c *Conn) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("fakedb: prepared statements not supported")
}

func (c *Conn) Begin() (driver.Tx, error) {
	return nil, errors.New("fakedb: use BeginTx")
}

func (c *Conn) Close() error {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()
	if !already {
		c.connector.script.record("CLOSE")
	}
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	c.pings++
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return driver.ErrBadConn
	}
	c.connector.script.record("PING")
	if err := c.connector.takePingErr(); err != nil {
		return err
	}
	return ctx.Err()
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.connector.script.record("QUERY " + collapseSpace(query))
	c.connector.script.recordCall(query, args)
	res, ok := c.connector.script.lookupQuery(query)
	if !ok {
		return nil, fmt.Errorf("fakedb: no script for query %q", collapseSpace(query))
	}
	if res.err != nil {
		return nil, res.err
	}
	return &rows{columns: res.columns, data: res.rows}, nil
}

func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.connector.script.record("EXEC " + collapseSpace(query))
	c.connector.script.recordCall(query, args)
	res, ok := c.connector.script.lookupExec(query)
	if !ok {
		return nil, fmt.Errorf("fakedb: no script for exec %q", collapseSpace(query))
	}
	if res.err != nil {
		return nil, res.err
	}
	return result{lastInsertID: res.lastInsertID, rowsAffected: res.rowsAffected}, nil
}

func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.connector.script.record("BEGIN")
	return &tx{script: c.connector.script}, nil
}

// rows replays canned data. Byte-slice cells are copied through a scratch
// buffer that is reused between Next calls, mirroring the MySQL driver's
// buffer reuse so missing copies in callers show up as corrupted values.
type rows struct {
	columns []string
	data    [][]driver.Value
	pos     int
	scratch []byte
}

func (r *rows) Columns() []string { return r.columns }

func (r *rows) Close() error { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.pos]
	r.pos++
	r.scratch = r.scratch[:0]
	for i := range dest {
		if i >= len(row) {
			dest[i] = nil
			continue
		}
		if b, ok := row[i].([]byte); ok {
			start := len(r.scratch)
			r.scratch = append(r.scratch, b...)
			dest[i] = r.scratch[start:len(r.scratch):len(r.scratch)]
		} else {
			dest[i] = row[i]
		}
	}
	return nil
}

type tx struct {
	script *Script
	done   bool
}

func (t *tx) Commit() error {
	if t.done {
		return errors.New("fakedb: transaction already finished")
	}
	t.done = true
	t.script.record("COMMIT")
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return errors.New("fakedb: transaction already finished")
	}
	t.done = true
	t.script.record("ROLLBACK")
	return nil
}

type result struct {
	lastInsertID int64
	rowsAffected int64
}

func (r result) LastInsertId() (int64, error) { return r.lastInsertID, nil }

func (r result) RowsAffected() (int64, error) { return r.rowsAffected, nil }

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package mymcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/rickchristie/mysql-mcp/internal/logsafe"
	"github.com/rickchristie/mysql-mcp/internal/pool"
)

// MySQLMcp is the engine behind the list_tables, describe_table,
// execute_query, execute_write, and get_table_data tools. All exported
// methods are safe for concurrent use from multiple goroutines.
type MySQLMcp struct {
	config   Config
	pool     *pool.Pool
	redactor *logsafe.Redactor
	logger   zerolog.Logger
}

// defaultRedactionRules scrub credential-bearing SQL before it reaches the
// logs. Config.Redaction replaces the set when non-empty.
var defaultRedactionRules = []RedactionRule{
	{Pattern: `(?i)(identified\s+by\s+)'[^']*'`, Replacement: "${1}'[redacted]'"},
	{Pattern: `(?i)(identified\s+by\s+)"[^"]*"`, Replacement: `${1}"[redacted]"`},
	{Pattern: `(?i)(password\s*\(\s*)'[^']*'`, Replacement: "${1}'[redacted]'"},
	{Pattern: `(?i)(set\s+password\s*=\s*)'[^']*'`, Replacement: "${1}'[redacted]'"},
}

// New creates a MySQLMcp instance. No connection is dialed here; the pool
// dials lazily, so call Ping to verify connectivity at startup.
//
// New panics when the Config is structurally invalid (missing host, bad
// pool sizing, broken redaction regex), since a bad programmatic Config is
// a programmer error. It returns an error only for runtime failures.
func New(config Config, logger zerolog.Logger) (*MySQLMcp, error) {
	applyConfigDefaults(&config)
	validateOrPanic(config)

	// --- Configure the MySQL connector ---
	driverConfig := mysql.NewConfig()
	driverConfig.Net = "tcp"
	driverConfig.Addr = fmt.Sprintf("%s:%d", config.Connection.Host, config.Connection.Port)
	driverConfig.User = config.Connection.User
	driverConfig.Passwd = config.Connection.Password
	driverConfig.DBName = config.Connection.DBName
	driverConfig.ParseTime = true
	driverConfig.Timeout = time.Duration(config.Query.TimeoutSeconds) * time.Second
	driverConfig.Params = map[string]string{"charset": "utf8mb4"}

	connector, err := mysql.NewConnector(driverConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to configure mysql connector: %w", err)
	}

	return newInstance(connector, config, logger), nil
}

// NewWithConnector creates a MySQLMcp instance over a caller-supplied
// connector. It exists for tests and custom dialing; New is the normal
// path. The same Config panics apply.
func NewWithConnector(connector driver.Connector, config Config, logger zerolog.Logger) *MySQLMcp {
	applyConfigDefaults(&config)
	validateOrPanic(config)
	return newInstance(connector, config, logger)
}

func newInstance(connector driver.Connector, config Config, logger zerolog.Logger) *MySQLMcp {
	rules := defaultRedactionRules
	if len(config.Redaction) > 0 {
		rules = config.Redaction
	}
	redactor, err := logsafe.New(mapRedactionRules(rules))
	if err != nil {
		panic("mymcp: " + err.Error())
	}

	connPool := pool.New(connector, pool.Config{
		Size:           config.Pool.Size,
		MaxOverflow:    config.Pool.MaxOverflow,
		Recycle:        time.Duration(config.Pool.RecycleSeconds) * time.Second,
		AcquireTimeout: time.Duration(config.Query.TimeoutSeconds) * time.Second,
		Logger:         logger,
	})

	return &MySQLMcp{
		config:   config,
		pool:     connPool,
		redactor: redactor,
		logger:   logger,
	}
}

func applyConfigDefaults(config *Config) {
	if config.Connection.Port == 0 {
		config.Connection.Port = DefaultPort
	}
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = DefaultMaxSQLLength
	}
}

func validateOrPanic(config Config) {
	if config.Connection.Host == "" {
		panic("mymcp: connection.host must not be empty")
	}
	if config.Connection.User == "" {
		panic("mymcp: connection.user must not be empty")
	}
	if config.Connection.DBName == "" {
		panic("mymcp: connection.dbname must not be empty")
	}
	if err := config.validate(); err != nil {
		panic("mymcp: " + err.Error())
	}
}

// mapRedactionRules converts public RedactionRule values to the internal
// logsafe rule type.
func mapRedactionRules(rules []RedactionRule) []logsafe.Rule {
	mapped := make([]logsafe.Rule, len(rules))
	for i, rule := range rules {
		mapped[i] = logsafe.Rule{Pattern: rule.Pattern, Replacement: rule.Replacement}
	}
	return mapped
}

// Ping acquires one connection and runs SELECT 1. This is the startup
// self-check: a failure means the database is unreachable, the credentials
// are wrong, or the pool cannot hand out a session.
func (m *MySQLMcp) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.queryTimeout())
	defer cancel()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	rows, err := conn.QueryContext(ctx, "SELECT 1", nil)
	if err != nil {
		return errors.Join(ErrConnectFailed, err)
	}
	return rows.Close()
}

// Close closes the connection pool. The context parameter is accepted for
// API stability; the current implementation does not block on in-flight
// operations.
func (m *MySQLMcp) Close(ctx context.Context) {
	stat := m.pool.Stats()
	m.pool.Close()
	m.logger.Debug().
		Int64("acquires", stat.Acquires).
		Int64("dials", stat.Dials).
		Int64("recycled", stat.Recycled).
		Msg("mymcp closed")
}

// PoolStats is a point-in-time snapshot of connection pool counters.
type PoolStats struct {
	Size           int   `json:"size"`
	MaxOverflow    int   `json:"max_overflow"`
	Idle           int   `json:"idle"`
	CheckedOut     int   `json:"checked_out"`
	Acquires       int64 `json:"acquires"`
	EmptyAcquires  int64 `json:"empty_acquires"`
	Dials          int64 `json:"dials"`
	Recycled       int64 `json:"recycled"`
	ProbeFailures  int64 `json:"probe_failures"`
	OverflowClosed int64 `json:"overflow_closed"`
}

// PoolStats returns a snapshot of the connection pool counters.
func (m *MySQLMcp) PoolStats() PoolStats {
	stat := m.pool.Stats()
	return PoolStats{
		Size:           stat.Size,
		MaxOverflow:    stat.MaxOverflow,
		Idle:           stat.Idle,
		CheckedOut:     stat.CheckedOut,
		Acquires:       stat.Acquires,
		EmptyAcquires:  stat.EmptyAcquires,
		Dials:          stat.Dials,
		Recycled:       stat.Recycled,
		ProbeFailures:  stat.ProbeFailures,
		OverflowClosed: stat.OverflowClosed,
	}
}

func (m *MySQLMcp) queryTimeout() time.Duration {
	return time.Duration(m.config.Query.TimeoutSeconds) * time.Second
}

// opErr logs an operation failure and passes the error through unchanged.
func (m *MySQLMcp) opErr(op, table string, err error) error {
	event := m.logger.Error().Str("operation", op)
	if table != "" {
		event = event.Str("table", table)
	}
	event.Err(err).Msg("operation failed")
	return err
}

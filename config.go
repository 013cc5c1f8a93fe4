package mymcp

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by FromEnv.
const (
	EnvDBHost        = "DB_HOST"
	EnvDBPort        = "DB_PORT"
	EnvDBUser        = "DB_USER"
	EnvDBPassword    = "DB_PASSWORD"
	EnvDBName        = "DB_NAME"
	EnvPoolSize      = "DB_POOL_SIZE"
	EnvPoolRecycle   = "DB_POOL_RECYCLE"
	EnvMaxOverflow   = "DB_MAX_OVERFLOW"
	EnvQueryTimeout  = "QUERY_TIMEOUT"
	EnvMaxResultRows = "MAX_RESULT_ROWS"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
	EnvLogOutput     = "LOG_OUTPUT"
)

// Defaults applied when the corresponding variable or field is unset.
const (
	DefaultPort           = 3306
	DefaultPoolSize       = 5
	DefaultRecycleSeconds = 3600
	DefaultMaxOverflow    = 2
	DefaultTimeoutSeconds = 30
	DefaultMaxResultRows  = 1000
	DefaultMaxSQLLength   = 100_000

	// DefaultTableDataLimit is the page size GetTableData uses when the
	// request does not name one.
	DefaultTableDataLimit = 100
)

// ConnectionConfig holds MySQL session parameters.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	DBName   string `json:"dbname"`
}

// PoolConfig sizes the connection pool. Size connections are retained when
// idle; up to MaxOverflow transient connections may exist on top of that
// under load. An idle connection older than RecycleSeconds is replaced
// before it is handed out again.
type PoolConfig struct {
	Size           int `json:"size"`
	MaxOverflow    int `json:"max_overflow"`
	RecycleSeconds int `json:"recycle_seconds"`
}

// QueryConfig holds statement execution settings.
type QueryConfig struct {
	// TimeoutSeconds bounds each operation, including the wait for a pool
	// connection.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxResultRows caps every result set. Anything beyond the cap is
	// dropped and the output is flagged as truncated.
	MaxResultRows int `json:"max_result_rows"`

	// MaxSQLLength caps statement text in bytes. 0 means
	// DefaultMaxSQLLength.
	MaxSQLLength int `json:"max_sql_length"`
}

// RedactionRule rewrites log-bound SQL matching Pattern with Replacement.
// Replacement may reference capture groups with ${n}.
type RedactionRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// Config is the base configuration used by library mode via New().
type Config struct {
	Connection ConnectionConfig `json:"connection"`
	Pool       PoolConfig       `json:"pool"`
	Query      QueryConfig      `json:"query"`

	// Redaction replaces the built-in credential redaction rules applied to
	// SQL before it is logged. Leave empty to keep the defaults.
	Redaction []RedactionRule `json:"redaction,omitempty"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // console or json
	Output string `json:"output"` // stderr, stdout, or a file path
}

// ServerConfig embeds Config and adds CLI-mode settings. Library users work
// with Config directly.
type ServerConfig struct {
	Config
	Logging LoggingConfig `json:"logging"`
}

// FromEnv builds a ServerConfig from the process environment. All missing
// required variables are reported in a single error so an operator can fix
// them in one pass. Returned errors match ErrConfig.
func FromEnv() (*ServerConfig, error) {
	config := &ServerConfig{}

	// 1. Required connection settings.
	var missing []string
	required := func(key string) string {
		value := os.Getenv(key)
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}
	config.Connection.Host = required(EnvDBHost)
	config.Connection.User = required(EnvDBUser)
	config.Connection.Password = required(EnvDBPassword)
	config.Connection.DBName = required(EnvDBName)
	if len(missing) > 0 {
		return nil, errors.Join(ErrConfig,
			fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}

	// 2. Numeric settings with defaults.
	var parseErr error
	intVar := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("%s: %q is not an integer", key, raw)
		}
		return n
	}
	config.Connection.Port = intVar(EnvDBPort, DefaultPort)
	config.Pool.Size = intVar(EnvPoolSize, DefaultPoolSize)
	config.Pool.RecycleSeconds = intVar(EnvPoolRecycle, DefaultRecycleSeconds)
	config.Pool.MaxOverflow = intVar(EnvMaxOverflow, DefaultMaxOverflow)
	config.Query.TimeoutSeconds = intVar(EnvQueryTimeout, DefaultTimeoutSeconds)
	config.Query.MaxResultRows = intVar(EnvMaxResultRows, DefaultMaxResultRows)
	if parseErr != nil {
		return nil, errors.Join(ErrConfig, parseErr)
	}

	// 3. Range checks.
	if err := config.Config.validate(); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	config.Logging.Level = envOr(EnvLogLevel, "info")
	config.Logging.Format = envOr(EnvLogFormat, "console")
	config.Logging.Output = envOr(EnvLogOutput, "stderr")
	return config, nil
}

func envOr(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// validate checks value ranges shared by FromEnv (reported as ErrConfig)
// and New (reported as a panic, since a bad programmatic Config is a
// programmer error).
func (c Config) validate() error {
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return fmt.Errorf("connection.port must be in [1, 65535], got %d", c.Connection.Port)
	}
	if c.Pool.Size < 1 {
		return fmt.Errorf("pool.size must be >= 1, got %d", c.Pool.Size)
	}
	if c.Pool.MaxOverflow < 0 {
		return fmt.Errorf("pool.max_overflow must be >= 0, got %d", c.Pool.MaxOverflow)
	}
	if c.Pool.RecycleSeconds < 1 {
		return fmt.Errorf("pool.recycle_seconds must be >= 1, got %d", c.Pool.RecycleSeconds)
	}
	if c.Query.TimeoutSeconds < 1 {
		return fmt.Errorf("query.timeout_seconds must be >= 1, got %d", c.Query.TimeoutSeconds)
	}
	if c.Query.MaxResultRows < 1 {
		return fmt.Errorf("query.max_result_rows must be >= 1, got %d", c.Query.MaxResultRows)
	}
	if c.Query.MaxSQLLength < 0 {
		return fmt.Errorf("query.max_sql_length must be >= 0, got %d", c.Query.MaxSQLLength)
	}
	return nil
}

package mymcp

import (
	"errors"

	"github.com/rickchristie/mysql-mcp/internal/pool"
	"github.com/rickchristie/mysql-mcp/internal/validate"
)

// Sentinel errors forming the failure taxonomy. Every error returned by an
// operation wraps exactly one of these, so callers discriminate with
// errors.Is: ErrPoolExhausted is worth retrying, ErrQueryFailed is not.
var (
	// ErrConfig marks missing or invalid settings. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrPoolExhausted means no connection became available within the
	// acquisition wait bound. The database itself may be perfectly healthy.
	ErrPoolExhausted = pool.ErrPoolExhausted

	// ErrConnectFailed means a connection could not be established or kept
	// alive: the database is down, unreachable, or rejected the session.
	ErrConnectFailed = pool.ErrConnectFailed

	// ErrQueryFailed marks a read statement the database rejected. The
	// database's own message is preserved verbatim in the chain.
	ErrQueryFailed = errors.New("query failed")

	// ErrWriteFailed marks a write statement that failed and was rolled
	// back.
	ErrWriteFailed = errors.New("write failed")

	// ErrValidation marks request arguments that violate a declared
	// constraint, rejected before any database access.
	ErrValidation = validate.ErrValidation
)

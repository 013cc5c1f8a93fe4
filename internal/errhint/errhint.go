// Package errhint maps failure kinds to recovery guidance appended to tool
// error messages, steering a calling agent toward retrying, fixing its
// arguments, or giving up.
package errhint

import (
	"errors"

	"github.com/rickchristie/mysql-mcp/internal/pool"
	"github.com/rickchristie/mysql-mcp/internal/validate"
)

// For returns guidance for the given error, or "" when the error text
// already says everything useful. Database execution errors get no hint:
// the server's own message is surfaced verbatim and is the best signal.
func For(err error) string {
	switch {
	case errors.Is(err, pool.ErrPoolExhausted):
		return "All database connection slots are busy. Wait briefly and retry; if this persists, reduce concurrent tool calls."
	case errors.Is(err, pool.ErrConnectFailed):
		return "The database is unreachable or rejected the session. Retrying immediately is unlikely to help; this usually needs operator attention."
	case errors.Is(err, validate.ErrValidation):
		return "The request arguments violate a declared constraint. Fix the arguments before retrying; do not resend the call unchanged."
	default:
		return ""
	}
}

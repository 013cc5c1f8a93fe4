package mymcp

import (
	"context"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/logsafe"
	"github.com/rickchristie/mysql-mcp/internal/validate"
)

// ExecuteWrite runs a write statement inside a transaction and reports the
// committed effect. Any execution error rolls the transaction back, so the
// statement either fully applies or leaves no trace.
func (m *MySQLMcp) ExecuteWrite(ctx context.Context, input WriteInput) (*WriteOutput, error) {
	startTime := time.Now()

	// 1. Validate before anything touches the database.
	if err := validate.SQLText(input.SQL, m.config.Query.MaxSQLLength); err != nil {
		return nil, m.opErr("execute_write", "", err)
	}

	// 2. Compile named parameters into bindvars.
	sql, args, err := bindNamed(input.SQL, input.Params)
	if err != nil {
		return nil, m.opErr("execute_write", "", err)
	}

	// 3. Execute inside a transaction within the query timeout.
	queryCtx, cancel := context.WithTimeout(ctx, m.queryTimeout())
	defer cancel()

	output, err := m.executeWrite(queryCtx, sql, args)
	if err != nil {
		return nil, m.opErr("execute_write", "", err)
	}

	m.logger.Info().
		Str("sql", logsafe.Truncate(m.redactor.Apply(input.SQL), logSQLMax)).
		Dur("duration", time.Since(startTime)).
		Int64("rows_affected", output.RowsAffected).
		Msg("execute_write executed")

	return output, nil
}

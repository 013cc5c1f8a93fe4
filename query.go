package mymcp

import (
	"context"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/logsafe"
	"github.com/rickchristie/mysql-mcp/internal/validate"
)

// ExecuteQuery runs a read statement and returns its rows, capped at the
// configured maximum. Reads run without a transaction. Parameter values
// bind to :name placeholders; they are never spliced into the statement.
func (m *MySQLMcp) ExecuteQuery(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	startTime := time.Now()

	// 1. Validate before anything touches the database.
	if err := validate.SQLText(input.SQL, m.config.Query.MaxSQLLength); err != nil {
		return nil, m.opErr("execute_query", "", err)
	}

	// 2. Compile named parameters into bindvars.
	sql, args, err := bindNamed(input.SQL, input.Params)
	if err != nil {
		return nil, m.opErr("execute_query", "", err)
	}

	// 3. Execute within the query timeout, which also bounds the wait for a
	// pool connection.
	queryCtx, cancel := context.WithTimeout(ctx, m.queryTimeout())
	defer cancel()

	columns, rows, err := m.executeRead(queryCtx, sql, args)
	if err != nil {
		return nil, m.opErr("execute_query", "", err)
	}

	// 4. Cap the result set. Truncation is a success with a flag, plus a
	// warning in the log.
	total := len(rows)
	rows, truncated := truncateRows(rows, m.config.Query.MaxResultRows)
	if truncated {
		m.logger.Warn().
			Int("row_count", total).
			Int("max_result_rows", m.config.Query.MaxResultRows).
			Msg("result truncated")
	}

	m.logger.Info().
		Str("sql", logsafe.Truncate(m.redactor.Apply(input.SQL), logSQLMax)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(rows)).
		Bool("truncated", truncated).
		Msg("execute_query executed")

	return &QueryOutput{Columns: columns, Rows: rows, Truncated: truncated}, nil
}

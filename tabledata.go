package mymcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/validate"
)

// GetTableData pages through a table without requiring the caller to write
// SQL. Limit and offset are validated numbers; the table name, column list,
// WHERE, and ORDER BY parts are raw fragments spliced into the statement
// text. That splice is this tool's contract: the caller is trusted with
// fragment content, and the database's privileges are the backstop.
func (m *MySQLMcp) GetTableData(ctx context.Context, input TableDataInput) (*QueryOutput, error) {
	startTime := time.Now()

	// 1. Validate paging before any database access. An out-of-range limit
	// never reaches the LIMIT clause.
	if err := validate.TableData(input.Table, input.Limit, input.Offset); err != nil {
		return nil, m.opErr("get_table_data", input.Table, err)
	}

	// 2. Compose the statement from the raw fragments.
	sql := buildTableQuery(input)

	// 3. Execute under the read contract.
	queryCtx, cancel := context.WithTimeout(ctx, m.queryTimeout())
	defer cancel()

	columns, rows, err := m.executeRead(queryCtx, sql, nil)
	if err != nil {
		return nil, m.opErr("get_table_data", input.Table, err)
	}

	// 4. Cap the result set. The validated limit already bounds it, but the
	// governor is unconditional.
	total := len(rows)
	rows, truncated := truncateRows(rows, m.config.Query.MaxResultRows)
	if truncated {
		m.logger.Warn().
			Str("table", input.Table).
			Int("row_count", total).
			Int("max_result_rows", m.config.Query.MaxResultRows).
			Msg("result truncated")
	}

	m.logger.Info().
		Str("table", input.Table).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(rows)).
		Int("limit", input.Limit).
		Int("offset", input.Offset).
		Msg("get_table_data executed")

	return &QueryOutput{Columns: columns, Rows: rows, Truncated: truncated}, nil
}

// buildTableQuery composes the SELECT statement from the request's raw
// fragments.
func buildTableQuery(input TableDataInput) string {
	columns := "*"
	if len(input.Columns) > 0 {
		columns = strings.Join(input.Columns, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", columns, input.Table)
	if input.Where != "" {
		fmt.Fprintf(&sb, " WHERE %s", input.Where)
	}
	if input.OrderBy != "" {
		fmt.Fprintf(&sb, " ORDER BY %s", input.OrderBy)
	}
	fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", input.Limit, input.Offset)
	return sb.String()
}

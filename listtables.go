package mymcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"time"
)

// listTablesSQL enumerates base tables in the connected database. Views are
// deliberately excluded; describe_table still works on them by name.
const listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE()
  AND table_type = 'BASE TABLE'
ORDER BY table_name;
`

// ListTables returns the names of the base tables in the configured
// database, sorted alphabetically.
func (m *MySQLMcp) ListTables(ctx context.Context) (*ListTablesOutput, error) {
	startTime := time.Now()

	queryCtx, cancel := context.WithTimeout(ctx, m.queryTimeout())
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return nil, m.opErr("list_tables", "", err)
	}
	defer conn.Release()

	rows, err := conn.QueryContext(queryCtx, listTablesSQL, nil)
	if err != nil {
		return nil, m.opErr("list_tables", "", errors.Join(ErrQueryFailed, err))
	}
	defer rows.Close()

	// Scan positionally: catalog column header casing varies across MySQL
	// versions, the position does not.
	tables := []string{}
	dest := make([]driver.Value, len(rows.Columns()))
	for {
		if err := rows.Next(dest); err != nil {
			if err == io.EOF {
				break
			}
			return nil, m.opErr("list_tables", "", errors.Join(ErrQueryFailed, err))
		}
		tables = append(tables, catalogString(dest[0]))
	}

	m.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("list_tables executed")

	return &ListTablesOutput{Tables: tables}, nil
}

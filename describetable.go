package mymcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/validate"
)

// describeColumnsSQL reads column metadata from the catalog. The table name
// is a bound parameter, never statement text.
const describeColumnsSQL = `
SELECT column_name, column_type, is_nullable, column_default, column_comment
FROM information_schema.columns
WHERE table_schema = DATABASE()
  AND table_name = ?
ORDER BY ordinal_position;
`

// DescribeTable returns the column definitions of one table: name, native
// type spelling, nullability, default, and comment.
func (m *MySQLMcp) DescribeTable(ctx context.Context, input DescribeTableInput) (*DescribeTableOutput, error) {
	startTime := time.Now()

	// 1. Validate before any database access.
	if err := validate.TableName(input.Table); err != nil {
		return nil, m.opErr("describe_table", input.Table, err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, m.queryTimeout())
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return nil, m.opErr("describe_table", input.Table, err)
	}
	defer conn.Release()

	// 2. Read the catalog, scanning positionally.
	rows, err := conn.QueryContext(queryCtx, describeColumnsSQL, []any{input.Table})
	if err != nil {
		return nil, m.opErr("describe_table", input.Table, errors.Join(ErrQueryFailed, err))
	}
	defer rows.Close()

	var columns []ColumnInfo
	dest := make([]driver.Value, len(rows.Columns()))
	for {
		if err := rows.Next(dest); err != nil {
			if err == io.EOF {
				break
			}
			return nil, m.opErr("describe_table", input.Table, errors.Join(ErrQueryFailed, err))
		}
		columns = append(columns, ColumnInfo{
			Name:     catalogString(dest[0]),
			Type:     catalogString(dest[1]),
			Nullable: strings.EqualFold(catalogString(dest[2]), "YES"),
			Default:  catalogString(dest[3]),
			Comment:  catalogString(dest[4]),
		})
	}

	// 3. The catalog returns no rows for an unknown table. Surface that as
	// a failure, not an empty description.
	if len(columns) == 0 {
		err := errors.Join(ErrQueryFailed, fmt.Errorf("table not found: %s", input.Table))
		return nil, m.opErr("describe_table", input.Table, err)
	}

	m.logger.Info().
		Str("table", input.Table).
		Dur("duration", time.Since(startTime)).
		Int("column_count", len(columns)).
		Msg("describe_table executed")

	return &DescribeTableOutput{Table: input.Table, Columns: columns}, nil
}

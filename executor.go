package mymcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
)

// logSQLMax caps how much statement text a log line carries.
const logSQLMax = 200

// bindNamed compiles :name placeholders into ? bindvars and orders the
// argument values to match. Statements without parameters pass through
// untouched, so colons inside string literals cannot trip the compiler.
func bindNamed(sql string, params map[string]any) (string, []any, error) {
	if len(params) == 0 {
		return sql, nil, nil
	}
	bound, args, err := sqlx.Named(sql, params)
	if err != nil {
		return "", nil, errors.Join(ErrValidation, fmt.Errorf("parameter binding failed: %w", err))
	}
	return bound, args, nil
}

// executeRead runs one statement under the read contract: no transaction,
// rows fully materialized before the connection is released.
func (m *MySQLMcp) executeRead(ctx context.Context, sql string, args []any) ([]string, []map[string]any, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	rows, err := conn.QueryContext(ctx, sql, args)
	if err != nil {
		return nil, nil, errors.Join(ErrQueryFailed, err)
	}
	return collectRows(rows)
}

// executeWrite runs one statement inside an atomic unit of work: begin,
// execute, commit on success, roll back on any execution error.
func (m *MySQLMcp) executeWrite(ctx context.Context, sql string, args []any) (*WriteOutput, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return nil, errors.Join(ErrWriteFailed, err)
	}

	res, err := conn.ExecContext(ctx, sql, args)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Join(ErrWriteFailed, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Join(ErrWriteFailed, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Join(ErrWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Join(ErrWriteFailed, err)
	}

	return &WriteOutput{Status: "success", RowsAffected: affected, LastInsertID: lastID}, nil
}

// collectRows drains driver rows into JSON-friendly maps. Values are
// converted eagerly because the driver reuses its buffers between Next
// calls.
func collectRows(rows driver.Rows) ([]string, []map[string]any, error) {
	defer rows.Close()

	columns := rows.Columns()
	out := make([]map[string]any, 0)
	dest := make([]driver.Value, len(columns))
	for {
		err := rows.Next(dest)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Join(ErrQueryFailed, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertValue(dest[i])
		}
		out = append(out, row)
	}
	return columns, out, nil
}

// convertValue maps a driver value to a JSON-friendly Go type. The MySQL
// driver returns textual, decimal, and blob columns as []byte; those must
// be copied into a string before the next row overwrites the buffer.
func convertValue(v driver.Value) any {
	switch value := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(value)
	case time.Time:
		return value.Format(time.RFC3339Nano)
	case int64, float64, bool, string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

// catalogString renders a catalog cell as a string. information_schema
// character columns arrive as []byte.
func catalogString(v driver.Value) string {
	switch value := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(value)
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

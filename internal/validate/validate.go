// Package validate rejects malformed tool arguments before they reach the
// database. Failures carry ErrValidation so callers can tell a bad request
// apart from a database failure.
package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks request arguments that violate a declared constraint.
var ErrValidation = errors.New("validation failed")

// Bounds for GetTableData paging.
const (
	MinLimit = 1
	MaxLimit = 1000
)

// TableName checks that a table name argument is present.
func TableName(table string) error {
	if strings.TrimSpace(table) == "" {
		return errors.Join(ErrValidation, errors.New("table name must not be empty"))
	}
	return nil
}

// TableData checks the paging arguments of a table data request. The limit
// bound is fixed: values outside [MinLimit, MaxLimit] are rejected here, so
// an out-of-range request never produces a LIMIT clause.
func TableData(table string, limit, offset int) error {
	if err := TableName(table); err != nil {
		return err
	}
	if limit < MinLimit || limit > MaxLimit {
		return errors.Join(ErrValidation,
			fmt.Errorf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, limit))
	}
	if offset < 0 {
		return errors.Join(ErrValidation, fmt.Errorf("offset must be >= 0, got %d", offset))
	}
	return nil
}

// SQLText checks that a statement is non-empty and, when maxLen > 0, within
// the configured length cap.
func SQLText(sql string, maxLen int) error {
	if strings.TrimSpace(sql) == "" {
		return errors.Join(ErrValidation, errors.New("statement must not be empty"))
	}
	if maxLen > 0 && len(sql) > maxLen {
		return errors.Join(ErrValidation,
			fmt.Errorf("statement is %d bytes, exceeding the %d byte maximum", len(sql), maxLen))
	}
	return nil
}

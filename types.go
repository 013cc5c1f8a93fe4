package mymcp

// RawFragment is SQL text spliced into a statement verbatim, without
// parameter binding. GetTableData accepts raw fragments for its column
// list, WHERE, and ORDER BY parts; whoever fills one owns its content.
type RawFragment string

// QueryInput is the input for the ExecuteQuery operation. Params values are
// bound to :name placeholders in SQL; they never become statement text.
type QueryInput struct {
	SQL    string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

// QueryOutput is a materialized result set. Truncated reports that the row
// list was cut at the configured maximum; a truncated result is still a
// success.
type QueryOutput struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated"`
}

// WriteInput is the input for the ExecuteWrite operation.
type WriteInput struct {
	SQL    string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

// WriteOutput reports the effect of a committed write statement.
type WriteOutput struct {
	Status       string `json:"status"`
	RowsAffected int64  `json:"affected_rows"`
	LastInsertID int64  `json:"last_insert_id,omitempty"`
}

// TableDataInput is the input for the GetTableData operation. Limit and
// Offset are validated integers; everything else is raw statement text.
type TableDataInput struct {
	Table   string      `json:"table_name"`
	Columns []string    `json:"columns,omitempty"`
	Where   RawFragment `json:"where,omitempty"`
	OrderBy RawFragment `json:"order_by,omitempty"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// ListTablesOutput is the output of the ListTables operation.
type ListTablesOutput struct {
	Tables []string `json:"tables"`
}

// DescribeTableInput is the input for the DescribeTable operation.
type DescribeTableInput struct {
	Table string `json:"table_name"`
}

// ColumnInfo describes one column as the catalog renders it. Type is the
// native column type spelling, e.g. "varchar(255)" or "int unsigned".
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// DescribeTableOutput is the output of the DescribeTable operation.
type DescribeTableOutput struct {
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}

package mymcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rickchristie/mysql-mcp/internal/errhint"
)

// RegisterMCPTools registers the five database tools (list_tables,
// describe_table, execute_query, execute_write, get_table_data) on the
// given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, myMcp *MySQLMcp) {
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List all base tables in the connected MySQL database."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(listTablesTool, myMcp.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output, err := myMcp.ListTables(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(output), nil
	}))

	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the columns of a table: name, native type, nullability, default value, and comment."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("Name of the table to describe"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(describeTableTool, myMcp.loggedToolHandler("describe_table", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError("table_name parameter is required and must be a string"), nil
		}
		output, err := myMcp.DescribeTable(ctx, DescribeTableInput{Table: table})
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(output), nil
	}))

	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query. Use :name placeholders in the query and pass their values in params; never inline user values into the SQL. Results are capped at the configured row limit."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL query to execute, with :name placeholders for parameters"),
		),
		mcp.WithObject("params",
			mcp.Description("Values for the :name placeholders, keyed by name"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(executeQueryTool, myMcp.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query parameter is required and must be a string"), nil
		}
		output, err := myMcp.ExecuteQuery(ctx, QueryInput{
			SQL:    query,
			Params: argObject(req, "params"),
		})
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(output), nil
	}))

	executeWriteTool := mcp.NewTool("execute_write",
		mcp.WithDescription("Execute an INSERT, UPDATE, or DELETE statement inside a transaction. Use :name placeholders in the statement and pass their values in params."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL statement to execute, with :name placeholders for parameters"),
		),
		mcp.WithObject("params",
			mcp.Description("Values for the :name placeholders, keyed by name"),
		),
	)
	mcpServer.AddTool(executeWriteTool, myMcp.loggedToolHandler("execute_write", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query parameter is required and must be a string"), nil
		}
		output, err := myMcp.ExecuteWrite(ctx, WriteInput{
			SQL:    query,
			Params: argObject(req, "params"),
		})
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(output), nil
	}))

	getTableDataTool := mcp.NewTool("get_table_data",
		mcp.WithDescription("Fetch rows from a table with optional column selection, filtering, ordering, and limit/offset paging."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("Name of the table to read from"),
		),
		mcp.WithArray("columns",
			mcp.Description("Columns to return; all columns when omitted"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("where",
			mcp.Description("Filter condition without the WHERE keyword, e.g. \"status = 'active'\""),
		),
		mcp.WithString("order_by",
			mcp.Description("Sort order without the ORDER BY keywords, e.g. \"created_at DESC\""),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum rows to return, between 1 and 1000 (default 100)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Rows to skip before returning (default 0)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(getTableDataTool, myMcp.loggedToolHandler("get_table_data", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError("table_name parameter is required and must be a string"), nil
		}
		output, err := myMcp.GetTableData(ctx, TableDataInput{
			Table:   table,
			Columns: argStringSlice(req, "columns"),
			Where:   RawFragment(req.GetString("where", "")),
			OrderBy: RawFragment(req.GetString("order_by", "")),
			Limit:   argInt(req, "limit", DefaultTableDataLimit),
			Offset:  argInt(req, "offset", 0),
		})
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(output), nil
	}))
}

// loggedToolHandler wraps a tool handler with debug logging of request and
// response sizes.
func (m *MySQLMcp) loggedToolHandler(toolName string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m.logger.Debug().
			Str("tool", toolName).
			Int("request_bytes", requestLength(req)).
			Msg("MCP tool request received")

		result, err := handler(ctx, req)

		m.logger.Debug().
			Str("tool", toolName).
			Int("response_bytes", resultLength(result)).
			Msg("MCP tool response sent")

		return result, err
	}
}

// toolError renders an operation error as an MCP error result, appending
// recovery guidance when the failure kind warrants it.
func toolError(err error) *mcp.CallToolResult {
	message := err.Error()
	if hint := errhint.For(err); hint != "" {
		message = message + "\n\n" + hint
	}
	return mcp.NewToolResultError(message)
}

// toolJSON renders an operation output as an MCP text result.
func toolJSON(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result to JSON: " + err.Error())
	}
	return mcp.NewToolResultText(string(jsonBytes))
}

// argObject reads an optional object argument as a map. Missing or
// mis-typed arguments read as nil.
func argObject(req mcp.CallToolRequest, key string) map[string]any {
	value, ok := req.GetArguments()[key]
	if !ok || value == nil {
		return nil
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return object
}

// argStringSlice reads an optional array argument, keeping its string
// elements.
func argStringSlice(req mcp.CallToolRequest, key string) []string {
	value, ok := req.GetArguments()[key]
	if !ok || value == nil {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// argInt reads an optional numeric argument, tolerating the float64 the
// JSON transport delivers. Missing or mis-typed arguments read as def.
func argInt(req mcp.CallToolRequest, key string, def int) int {
	value, ok := req.GetArguments()[key]
	if !ok || value == nil {
		return def
	}
	switch n := value.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return int(i)
	default:
		return def
	}
}

// requestLength returns the serialized size of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	jsonBytes, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(jsonBytes)
}

// resultLength returns the total text length of a tool result.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			total += len(textContent.Text)
		}
	}
	return total
}

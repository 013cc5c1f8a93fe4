// Package mymcp provides controlled MySQL access for AI agents through
// the Model Context Protocol (MCP).
//
// It exposes five tools (ListTables, DescribeTable, ExecuteQuery,
// ExecuteWrite, and GetTableData) backed by a bounded connection pool
// with age-based recycling and pre-use liveness probing, named
// parameter binding, transactional writes, and result row capping.
//
// Parameter values travel to the server separately from the SQL text:
// queries use :name placeholders that are compiled to driver
// placeholders and bound server-side, so values are never interpolated
// into the statement. GetTableData is the exception: its where and
// order_by fragments are spliced into the generated SQL verbatim, which
// is why the tool is meant for trusted agent input only.
//
// # Library Usage
//
//	m, err := mymcp.New(mymcp.Config{
//		Connection: mymcp.ConnectionConfig{
//			Host:     "localhost",
//			Port:     3306,
//			User:     "app",
//			Password: os.Getenv("DB_PASSWORD"),
//			DBName:   "appdb",
//		},
//		Pool: mymcp.PoolConfig{
//			Size:           5,
//			MaxOverflow:    2,
//			RecycleSeconds: 3600,
//		},
//		Query: mymcp.QueryConfig{
//			TimeoutSeconds: 30,
//			MaxResultRows:  1000,
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close(ctx)
//
//	// Verify connectivity before serving traffic.
//	if err := m.Ping(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	// Use directly
//	output, err := m.ExecuteQuery(ctx, mymcp.QueryInput{
//		SQL:    "SELECT * FROM users WHERE id = :id",
//		Params: map[string]any{"id": 42},
//	})
//
//	// Or register as MCP tools
//	mymcp.RegisterMCPTools(mcpServer, m)
//
// # Errors
//
// Operation failures wrap one of the package sentinels ([ErrConfig],
// [ErrPoolExhausted], [ErrConnectFailed], [ErrQueryFailed],
// [ErrWriteFailed], [ErrValidation]) so callers can branch on failure
// kind with [errors.Is] while the message keeps the driver detail:
//
//	if errors.Is(err, mymcp.ErrPoolExhausted) {
//		// back off and retry
//	}
//
// For full documentation, configuration reference, and examples, see:
// https://github.com/rickchristie/mysql-mcp
package mymcp

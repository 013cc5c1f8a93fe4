package mymcp_test

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"

	mymcp "github.com/rickchristie/mysql-mcp"
)

// Integration tests run against a live MySQL server. Point MYMCP_TEST_DSN at
// a throwaway database to enable them:
//
//	MYMCP_TEST_DSN='user:pass@tcp(localhost:3306)/testdb' go test -run Integration ./...
//
// Every test creates and drops its own tables, but the database itself is
// assumed disposable.

// integrationConfig builds a Config from MYMCP_TEST_DSN, skipping the test
// when the variable is unset.
func integrationConfig(t *testing.T) mymcp.Config {
	t.Helper()
	dsn := os.Getenv("MYMCP_TEST_DSN")
	if dsn == "" {
		t.Skip("MYMCP_TEST_DSN not set; skipping integration test")
	}

	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("invalid MYMCP_TEST_DSN: %v", err)
	}
	host, portStr, err := net.SplitHostPort(parsed.Addr)
	if err != nil {
		host, portStr = parsed.Addr, "3306"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("invalid port in MYMCP_TEST_DSN: %v", err)
	}

	config := defaultConfig()
	config.Connection = mymcp.ConnectionConfig{
		Host:     host,
		Port:     port,
		User:     parsed.User,
		Password: parsed.Passwd,
		DBName:   parsed.DBName,
	}
	return config
}

// integrationInstance connects to the live server and verifies connectivity
// before handing the instance to the test.
func integrationInstance(t *testing.T, config mymcp.Config) *mymcp.MySQLMcp {
	t.Helper()
	m, err := mymcp.New(config, testLogger())
	if err != nil {
		t.Fatalf("failed to create MySQLMcp: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })

	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	return m
}

// mustWrite runs a setup statement and fails the test on error.
func mustWrite(t *testing.T, m *mymcp.MySQLMcp, sql string) {
	t.Helper()
	if _, err := m.ExecuteWrite(context.Background(), mymcp.WriteInput{SQL: sql}); err != nil {
		t.Fatalf("setup statement failed: %v\n%s", err, sql)
	}
}

// dropTable registers a cleanup that removes the table.
func dropTable(t *testing.T, m *mymcp.MySQLMcp, table string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = m.ExecuteWrite(context.Background(), mymcp.WriteInput{
			SQL: "DROP TABLE IF EXISTS " + table,
		})
	})
}

func TestIntegration_RoundTrip(t *testing.T) {
	m := integrationInstance(t, integrationConfig(t))
	ctx := context.Background()

	mustWrite(t, m, "DROP TABLE IF EXISTS mymcp_it_users")
	mustWrite(t, m, `CREATE TABLE mymcp_it_users (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		score INT NOT NULL DEFAULT 0
	)`)
	dropTable(t, m, "mymcp_it_users")

	// Insert through named parameters.
	write, err := m.ExecuteWrite(ctx, mymcp.WriteInput{
		SQL:    "INSERT INTO mymcp_it_users (name, score) VALUES (:name, :score)",
		Params: map[string]any{"name": "alice", "score": 10},
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if write.RowsAffected != 1 || write.LastInsertID == 0 {
		t.Fatalf("unexpected write output: %+v", write)
	}
	mustWrite(t, m, "INSERT INTO mymcp_it_users (name, score) VALUES ('bob', 20)")

	// Read back through named parameters.
	output, err := m.ExecuteQuery(ctx, mymcp.QueryInput{
		SQL:    "SELECT name, score FROM mymcp_it_users WHERE score > :min ORDER BY score",
		Params: map[string]any{"min": 5},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(output.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(output.Rows))
	}
	if output.Rows[0]["name"] != "alice" || output.Rows[1]["name"] != "bob" {
		t.Fatalf("unexpected rows: %v", output.Rows)
	}
	if output.Rows[0]["score"] != int64(10) {
		t.Fatalf("expected int64 score, got %v (%T)", output.Rows[0]["score"], output.Rows[0]["score"])
	}

	// The table surfaces in the catalog operations.
	tables, err := m.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables failed: %v", err)
	}
	found := false
	for _, name := range tables.Tables {
		if name == "mymcp_it_users" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mymcp_it_users in %v", tables.Tables)
	}

	desc, err := m.DescribeTable(ctx, mymcp.DescribeTableInput{Table: "mymcp_it_users"})
	if err != nil {
		t.Fatalf("describe table failed: %v", err)
	}
	if len(desc.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %+v", desc.Columns)
	}
	if desc.Columns[0].Name != "id" || !strings.Contains(desc.Columns[0].Type, "int") {
		t.Fatalf("unexpected id column: %+v", desc.Columns[0])
	}
	if desc.Columns[1].Type != "varchar(64)" {
		t.Fatalf("expected native type 'varchar(64)', got %q", desc.Columns[1].Type)
	}
	if desc.Columns[1].Nullable {
		t.Fatal("expected name to be NOT NULL")
	}

	// Paged access through raw fragments.
	page, err := m.GetTableData(ctx, mymcp.TableDataInput{
		Table:   "mymcp_it_users",
		Columns: []string{"name"},
		Where:   "score >= 20",
		OrderBy: "name",
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("get table data failed: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0]["name"] != "bob" {
		t.Fatalf("unexpected page: %v", page.Rows)
	}
}

func TestIntegration_WriteRollback(t *testing.T) {
	m := integrationInstance(t, integrationConfig(t))
	ctx := context.Background()

	mustWrite(t, m, "DROP TABLE IF EXISTS mymcp_it_unique")
	mustWrite(t, m, `CREATE TABLE mymcp_it_unique (
		id INT NOT NULL PRIMARY KEY,
		tag VARCHAR(32) NOT NULL UNIQUE
	)`)
	dropTable(t, m, "mymcp_it_unique")
	mustWrite(t, m, "INSERT INTO mymcp_it_unique (id, tag) VALUES (1, 'first')")

	// A duplicate key fails the write and rolls the transaction back.
	_, err := m.ExecuteWrite(ctx, mymcp.WriteInput{
		SQL: "INSERT INTO mymcp_it_unique (id, tag) VALUES (2, 'first')",
	})
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !errors.Is(err, mymcp.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}

	output, err := m.ExecuteQuery(ctx, mymcp.QueryInput{SQL: "SELECT COUNT(*) AS n FROM mymcp_it_unique"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if output.Rows[0]["n"] != int64(1) {
		t.Fatalf("expected 1 row after failed insert, got %v", output.Rows[0]["n"])
	}
}

func TestIntegration_Truncation(t *testing.T) {
	config := integrationConfig(t)
	config.Query.MaxResultRows = 5
	m := integrationInstance(t, config)
	ctx := context.Background()

	mustWrite(t, m, "DROP TABLE IF EXISTS mymcp_it_rows")
	mustWrite(t, m, "CREATE TABLE mymcp_it_rows (n INT NOT NULL PRIMARY KEY)")
	dropTable(t, m, "mymcp_it_rows")
	for i := 0; i < 10; i++ {
		_, err := m.ExecuteWrite(ctx, mymcp.WriteInput{
			SQL:    "INSERT INTO mymcp_it_rows (n) VALUES (:n)",
			Params: map[string]any{"n": i},
		})
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	output, err := m.ExecuteQuery(ctx, mymcp.QueryInput{SQL: "SELECT n FROM mymcp_it_rows ORDER BY n"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !output.Truncated {
		t.Fatal("expected truncated result")
	}
	if len(output.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(output.Rows))
	}
	if output.Rows[0]["n"] != int64(0) || output.Rows[4]["n"] != int64(4) {
		t.Fatalf("expected stable ordered prefix, got %v", output.Rows)
	}
}

func TestIntegration_NullHandling(t *testing.T) {
	m := integrationInstance(t, integrationConfig(t))
	ctx := context.Background()

	mustWrite(t, m, "DROP TABLE IF EXISTS mymcp_it_nulls")
	mustWrite(t, m, "CREATE TABLE mymcp_it_nulls (id INT PRIMARY KEY, note VARCHAR(32) NULL)")
	dropTable(t, m, "mymcp_it_nulls")
	mustWrite(t, m, "INSERT INTO mymcp_it_nulls (id, note) VALUES (1, NULL)")

	output, err := m.ExecuteQuery(ctx, mymcp.QueryInput{SQL: "SELECT id, note FROM mymcp_it_nulls"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if output.Rows[0]["note"] != nil {
		t.Fatalf("expected nil note, got %v", output.Rows[0]["note"])
	}
}

func TestIntegration_DescribeTableNotFound(t *testing.T) {
	m := integrationInstance(t, integrationConfig(t))

	_, err := m.DescribeTable(context.Background(), mymcp.DescribeTableInput{
		Table: "mymcp_it_definitely_missing",
	})
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	if !errors.Is(err, mymcp.ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
}

package mymcp_test

import (
	"context"
	"os"
	"strings"
	"testing"

	mymcp "github.com/rickchristie/mysql-mcp"
	"github.com/rickchristie/mysql-mcp/internal/fakedb"
	"github.com/rs/zerolog"
)

// testLogger returns a disabled zerolog logger for tests.
func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// defaultConfig returns a minimal valid Config for testing.
func defaultConfig() mymcp.Config {
	return mymcp.Config{
		Connection: mymcp.ConnectionConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "tester",
			Password: "secret",
			DBName:   "testdb",
		},
		Pool: mymcp.PoolConfig{
			Size:           5,
			MaxOverflow:    2,
			RecycleSeconds: 3600,
		},
		Query: mymcp.QueryConfig{
			TimeoutSeconds: 30,
			MaxResultRows:  1000,
		},
	}
}

// newTestInstance creates a MySQLMcp over a scripted fake driver and returns
// the script for registering statement outcomes and asserting on calls.
func newTestInstance(t *testing.T, config mymcp.Config) (*mymcp.MySQLMcp, *fakedb.Script) {
	t.Helper()
	m, connector := newTestInstanceWithConnector(t, config)
	return m, connector.Script()
}

// newTestInstanceWithConnector is newTestInstance for tests that also assert
// on connection lifecycle events (dials, closes, pings).
func newTestInstanceWithConnector(t *testing.T, config mymcp.Config) (*mymcp.MySQLMcp, *fakedb.Connector) {
	t.Helper()
	connector := fakedb.NewConnector(nil)
	m := mymcp.NewWithConnector(connector, config, testLogger())
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, connector
}

// containsEvent reports whether the event log holds an entry with the given
// prefix.
func containsEvent(events []string, prefix string) bool {
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

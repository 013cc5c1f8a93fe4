// Package meta holds build metadata shared by CLI subcommands.
package meta

// Version is the gomymcp release version. Overridable at build time with
// -ldflags "-X github.com/rickchristie/mysql-mcp/internal/meta.Version=...".
var Version = "0.9.0"

package main

import (
	"flag"
	"os"

	"github.com/rickchristie/mysql-mcp/internal/configure"
)

func runConfigure() error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	envPath := fs.String("env-file", ".gomymcp.env", "Path to environment file")
	fs.Parse(os.Args[2:])

	printBanner(os.Stderr, isTTY(os.Stderr.Fd()))
	return configure.Run(*envPath)
}

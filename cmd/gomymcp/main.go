package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "configure":
		if err := runConfigure(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("gomymcp — MySQL MCP Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gomymcp serve       Start the MCP server (stdio, or HTTP with -http)")
	fmt.Println("  gomymcp configure   Run interactive configuration wizard")
	fmt.Println("  gomymcp doctor      Check the environment and print agent snippets")
	fmt.Println("  gomymcp --help      Show this help message")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	mymcp "github.com/rickchristie/mysql-mcp"
	"github.com/rickchristie/mysql-mcp/internal/meta"

	"github.com/rs/zerolog"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	noProbe := fs.Bool("no-probe", false, "Skip the live database connection probe")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *noProbe)
}

func doctor(w io.Writer, useColor bool, noProbe bool) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gomymcp %s\n\n", meta.Version)

	// Validate the environment
	config, ok := doctorValidateEnv(w, useColor)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gomymcp doctor' again.")
		return nil
	}

	// Probe the database unless told not to
	if !noProbe {
		doctorProbe(w, useColor, config)
	}

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor)
	return nil
}

// doctorValidateEnv checks the environment variables the server starts
// from, printing check results. Returns the parsed config and true if all
// checks passed.
func doctorValidateEnv(w io.Writer, useColor bool) (*mymcp.ServerConfig, bool) {
	allPassed := true

	// Check 1: required variables are present
	required := []string{mymcp.EnvDBHost, mymcp.EnvDBUser, mymcp.EnvDBPassword, mymcp.EnvDBName}
	for _, key := range required {
		value := os.Getenv(key)
		if value == "" {
			printCheck(w, useColor, false, fmt.Sprintf("%s is set", key))
			allPassed = false
			continue
		}
		if key == mymcp.EnvDBPassword {
			// Presence only, never the value.
			printCheck(w, useColor, true, fmt.Sprintf("%s is set", key))
			continue
		}
		printCheck(w, useColor, true, fmt.Sprintf("%s is set (%s)", key, value))
	}
	if !allPassed {
		return nil, false
	}

	// Check 2: the whole environment parses and validates
	config, err := mymcp.FromEnv()
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Environment parses: %v", err))
		return nil, false
	}
	printCheck(w, useColor, true, fmt.Sprintf(
		"Environment parses (pool %d+%d, recycle %ds, timeout %ds, max rows %d)",
		config.Pool.Size, config.Pool.MaxOverflow, config.Pool.RecycleSeconds,
		config.Query.TimeoutSeconds, config.Query.MaxResultRows))

	return config, true
}

// doctorProbe dials the configured database and runs the startup self
// check against it.
func doctorProbe(w io.Writer, useColor bool, config *mymcp.ServerConfig) {
	target := fmt.Sprintf("%s:%d/%s", config.Connection.Host, config.Connection.Port, config.Connection.DBName)

	myMcp, err := mymcp.New(config.Config, zerolog.New(io.Discard))
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database reachable (%s): %v", target, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer myMcp.Close(ctx)

	if err := myMcp.Ping(ctx); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database reachable (%s): %v", target, err))
		return
	}
	printCheck(w, useColor, true, fmt.Sprintf("Database reachable (%s)", target))
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI
// agents. The server speaks stdio by default, so the snippets launch
// 'gomymcp serve' directly and pass the database environment through.
func printAgentSnippets(w io.Writer, useColor bool) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	// Claude Code
	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add mysql -- gomymcp serve\n\n")
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "command": "gomymcp",
        "args": ["serve"],
        "env": {
          "DB_HOST": "localhost",
          "DB_USER": "app",
          "DB_PASSWORD": "...",
          "DB_NAME": "appdb"
        }
      }
    }
  }
`)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  The other agents below accept the same \"env\" block.\n")
	fmt.Fprintln(w)

	// Copilot CLI
	subheading("Copilot CLI (~/.copilot/mcp-config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "type": "local",
        "command": "gomymcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	// Gemini CLI
	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "command": "gomymcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	// OpenCode
	subheading("OpenCode (opencode.json)")
	fmt.Fprintf(w, `  {
    "mcp": {
      "mysql": {
        "type": "local",
        "command": ["gomymcp", "serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	// Cursor
	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "command": "gomymcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	// Windsurf
	subheading("Windsurf (~/.codeium/windsurf/mcp_config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "command": "gomymcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	// HTTP transport
	subheading("HTTP transport")
	fmt.Fprintf(w, "  Start the server with an HTTP listener:\n\n")
	fmt.Fprintf(w, "    gomymcp serve -http :8080\n\n")
	fmt.Fprintf(w, "  Then connect agents to http://localhost:8080/mcp, e.g.:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http mysql http://localhost:8080/mcp\n")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	mymcp "github.com/rickchristie/mysql-mcp"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func runServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	httpAddr := fs.String("http", "", "Listen address for streamable HTTP (e.g. :8080). Empty serves stdio.")
	healthPath := fs.String("health-path", "/healthz", "HTTP health check path. Only used with -http; empty disables it.")
	fs.Parse(os.Args[2:])

	ctx := context.Background()

	// 1. Interactive credential fallback. When stdin is a terminal and the
	// credentials are not in the environment, ask instead of failing.
	if isTTY(os.Stdin.Fd()) {
		if os.Getenv(mymcp.EnvDBUser) == "" {
			os.Setenv(mymcp.EnvDBUser, promptInput("MySQL username: "))
		}
		if os.Getenv(mymcp.EnvDBPassword) == "" {
			os.Setenv(mymcp.EnvDBPassword, promptPassword("MySQL password: "))
		}
	}

	// 2. Load configuration from the environment
	serverConfig, err := mymcp.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 3. Setup logger. stdout carries the MCP protocol in stdio mode, so
	// logs are forced to stderr there.
	if *httpAddr == "" && serverConfig.Logging.Output == "stdout" {
		serverConfig.Logging.Output = "stderr"
	}
	logger := setupLogger(serverConfig.Logging)

	// 4. Create MySQLMcp instance
	myMcp, err := mymcp.New(serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create MySQLMcp: %w", err)
	}
	defer myMcp.Close(ctx)

	// 5. Test database connection. WithLevel(FatalLevel) logs at fatal
	// severity without the os.Exit zerolog's Fatal() would do, so the
	// deferred Close still runs before main exits non-zero.
	logger.Info().Msg("testing database connection")
	if err := myMcp.Ping(ctx); err != nil {
		logger.WithLevel(zerolog.FatalLevel).Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		clientName := req.Params.ClientInfo.Name
		clientVersion := req.Params.ClientInfo.Version
		logger.Info().
			Str("client_name", clientName).
			Str("client_version", clientVersion).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("gomymcp", "1.0.0",
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	mymcp.RegisterMCPTools(mcpServer, myMcp)

	// 7. Serve stdio by default, streamable HTTP when -http is given
	if *httpAddr == "" {
		logger.Info().Msg("serving MCP over stdio")
		return server.ServeStdio(mcpServer)
	}
	return serveHTTP(mcpServer, logger, *httpAddr, *healthPath)
}

func serveHTTP(mcpServer *server.MCPServer, logger zerolog.Logger, addr, healthPath string) error {
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if healthPath != "" {
		mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler. Start() does NOT register it
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Str("addr", addr).Msg("starting gomymcp server")
	return streamableServer.Start(addr)
}

func setupLogger(config mymcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format != "json" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}

// Package configure implements the interactive wizard behind the configure
// subcommand. It edits the environment file the server is started with,
// prompting for every variable FromEnv reads.
package configure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mymcp "github.com/rickchristie/mysql-mcp"

	"golang.org/x/term"
)

// Run runs the interactive configuration wizard. It reads the existing
// environment file (if any), prompts for each variable, and writes the
// updated file back to envPath.
func Run(envPath string) error {
	var readSecret func() (string, error)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		readSecret = func() (string, error) {
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			return string(raw), err
		}
	}
	return run(envPath, os.Stdin, os.Stderr, readSecret)
}

func run(envPath string, input io.Reader, output io.Writer, readSecret func() (string, error)) error {
	values, isNew := loadExisting(envPath)
	if isNew {
		applyDefaults(values)
	}

	p := &prompter{
		scanner:    bufio.NewScanner(input),
		output:     output,
		isNew:      isNew,
		readSecret: readSecret,
	}

	fmt.Fprintf(output, "gomymcp configuration wizard\n")
	fmt.Fprintf(output, "Environment file: %s\n\n", envPath)

	// Connection
	fmt.Fprintf(output, "=== Connection ===\n")
	values[mymcp.EnvDBHost] = p.promptString(mymcp.EnvDBHost, values[mymcp.EnvDBHost])
	values[mymcp.EnvDBPort] = p.promptPositiveInt(mymcp.EnvDBPort, values[mymcp.EnvDBPort], "must be > 0")
	values[mymcp.EnvDBUser] = p.promptStringWithHint(mymcp.EnvDBUser, values[mymcp.EnvDBUser], "required")
	values[mymcp.EnvDBPassword] = p.promptSecret(mymcp.EnvDBPassword, values[mymcp.EnvDBPassword])
	values[mymcp.EnvDBName] = p.promptStringWithHint(mymcp.EnvDBName, values[mymcp.EnvDBName], "required")

	// Pool
	fmt.Fprintf(output, "\n=== Pool ===\n")
	values[mymcp.EnvPoolSize] = p.promptPositiveInt(mymcp.EnvPoolSize, values[mymcp.EnvPoolSize], "retained connections, must be > 0")
	values[mymcp.EnvPoolRecycle] = p.promptPositiveInt(mymcp.EnvPoolRecycle, values[mymcp.EnvPoolRecycle], "seconds before an idle connection is replaced, must be > 0")
	values[mymcp.EnvMaxOverflow] = p.promptNonNegativeInt(mymcp.EnvMaxOverflow, values[mymcp.EnvMaxOverflow], "transient connections on top of the pool, must be >= 0")

	// Query
	fmt.Fprintf(output, "\n=== Query ===\n")
	values[mymcp.EnvQueryTimeout] = p.promptPositiveInt(mymcp.EnvQueryTimeout, values[mymcp.EnvQueryTimeout], "seconds, must be > 0")
	values[mymcp.EnvMaxResultRows] = p.promptPositiveInt(mymcp.EnvMaxResultRows, values[mymcp.EnvMaxResultRows], "row cap per result, must be > 0")

	// Logging
	fmt.Fprintf(output, "\n=== Logging ===\n")
	values[mymcp.EnvLogLevel] = p.promptEnum(mymcp.EnvLogLevel, values[mymcp.EnvLogLevel], logLevels)
	values[mymcp.EnvLogFormat] = p.promptEnum(mymcp.EnvLogFormat, values[mymcp.EnvLogFormat], logFormats)
	values[mymcp.EnvLogOutput] = p.promptString(mymcp.EnvLogOutput, values[mymcp.EnvLogOutput])

	if err := writeEnv(envPath, values); err != nil {
		return fmt.Errorf("failed to write environment file: %w", err)
	}

	fmt.Fprintf(output, "\nConfiguration saved to %s\n", envPath)
	fmt.Fprintf(output, "Load it with: set -a; . %s; set +a\n", envPath)
	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// envFileLayout fixes the order variables are written in, grouped the way
// the wizard prompts for them.
var envFileLayout = []struct {
	section string
	keys    []string
}{
	{"Connection", []string{mymcp.EnvDBHost, mymcp.EnvDBPort, mymcp.EnvDBUser, mymcp.EnvDBPassword, mymcp.EnvDBName}},
	{"Pool", []string{mymcp.EnvPoolSize, mymcp.EnvPoolRecycle, mymcp.EnvMaxOverflow}},
	{"Query", []string{mymcp.EnvQueryTimeout, mymcp.EnvMaxResultRows}},
	{"Logging", []string{mymcp.EnvLogLevel, mymcp.EnvLogFormat, mymcp.EnvLogOutput}},
}

// loadExisting parses an environment file into a key-value map. A missing
// or unreadable file yields an empty map and isNew = true.
func loadExisting(envPath string) (map[string]string, bool) {
	values := map[string]string{}
	data, err := os.ReadFile(envPath)
	if err != nil {
		return values, true
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	return values, false
}

// unquote strips one matching pair of surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// applyDefaults fills in defaults for a new environment file.
func applyDefaults(values map[string]string) {
	values[mymcp.EnvDBHost] = "localhost"
	values[mymcp.EnvDBPort] = strconv.Itoa(mymcp.DefaultPort)
	values[mymcp.EnvPoolSize] = strconv.Itoa(mymcp.DefaultPoolSize)
	values[mymcp.EnvPoolRecycle] = strconv.Itoa(mymcp.DefaultRecycleSeconds)
	values[mymcp.EnvMaxOverflow] = strconv.Itoa(mymcp.DefaultMaxOverflow)
	values[mymcp.EnvQueryTimeout] = strconv.Itoa(mymcp.DefaultTimeoutSeconds)
	values[mymcp.EnvMaxResultRows] = strconv.Itoa(mymcp.DefaultMaxResultRows)
	values[mymcp.EnvLogLevel] = "info"
	values[mymcp.EnvLogFormat] = "console"
	values[mymcp.EnvLogOutput] = "stderr"
}

// writeEnv writes the environment file with a fixed layout. The file holds
// the database password, so it is created 0600.
func writeEnv(envPath string, values map[string]string) error {
	dir := filepath.Dir(envPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var sb strings.Builder
	sb.WriteString("# gomymcp server environment.\n")
	sb.WriteString("# Load with: set -a; . " + envPath + "; set +a\n")
	for _, group := range envFileLayout {
		sb.WriteString("\n# " + group.section + "\n")
		for _, key := range group.keys {
			sb.WriteString(key + "=" + values[key] + "\n")
		}
	}

	if err := os.WriteFile(envPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", envPath, err)
	}
	return nil
}

// prompter handles reading user input and displaying prompts.
type prompter struct {
	scanner *bufio.Scanner
	output  io.Writer
	isNew   bool

	// readSecret reads a password without echoing. nil falls back to plain
	// line reading, which tests rely on.
	readSecret func() (string, error)
}

func (p *prompter) readLine() string {
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	return ""
}

func (p *prompter) valueLabel() string {
	if p.isNew {
		return "default"
	}
	return "current"
}

func (p *prompter) promptString(field string, current string) string {
	fmt.Fprintf(p.output, "%s (%s: %q): ", field, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptStringWithHint(field string, current string, hint string) string {
	fmt.Fprintf(p.output, "%s [%s] (%s: %q): ", field, hint, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

// promptSecret prompts for the password. The existing value is never
// displayed, only whether one is set. Empty input keeps the current value;
// missing passwords are caught by FromEnv at server start.
func (p *prompter) promptSecret(field string, current string) string {
	state := "unset"
	if current != "" {
		state = "set"
	}
	fmt.Fprintf(p.output, "%s [required] (%s: %s): ", field, p.valueLabel(), state)
	var input string
	if p.readSecret != nil {
		raw, err := p.readSecret()
		if err != nil {
			fmt.Fprintf(p.output, "  Failed to read password: %v, keeping %s value.\n", err, p.valueLabel())
			return current
		}
		input = strings.TrimSpace(raw)
	} else {
		input = p.readLine()
	}
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptPositiveInt(field string, current string, hint string) string {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %s): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return input
	}
}

func (p *prompter) promptNonNegativeInt(field string, current string, hint string) string {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %s): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val < 0 {
			fmt.Fprintf(p.output, "  Value must be >= 0, try again.\n")
			continue
		}
		return input
	}
}

func (p *prompter) promptEnum(field string, current string, allowed []string) string {
	for {
		fmt.Fprintf(p.output, "%s (%s: %q, options: %s): ", field, p.valueLabel(), current, strings.Join(allowed, ", "))
		input := p.readLine()
		if input == "" {
			return current
		}
		for _, v := range allowed {
			if input == v {
				return input
			}
		}
		fmt.Fprintf(p.output, "  Invalid value %q, must be one of: %s\n", input, strings.Join(allowed, ", "))
	}
}

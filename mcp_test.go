package mymcp

import (
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func requestWithArgs(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "execute_query",
			Arguments: args,
		},
	}
}

func TestRequestLength_WithArguments(t *testing.T) {
	t.Parallel()
	req := requestWithArgs(map[string]any{"query": "SELECT 1"})
	length := requestLength(req)
	// {"query":"SELECT 1"} = 20 bytes
	if length != 20 {
		t.Fatalf("expected request length 20, got %d", length)
	}
}

func TestRequestLength_NoArguments(t *testing.T) {
	t.Parallel()
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "list_tables",
		},
	}
	length := requestLength(req)
	if length != 0 {
		t.Fatalf("expected request length 0 for no arguments, got %d", length)
	}
}

func TestRequestLength_EmptyArguments(t *testing.T) {
	t.Parallel()
	req := requestWithArgs(map[string]any{})
	length := requestLength(req)
	if length != 0 {
		t.Fatalf("expected request length 0 for empty arguments, got %d", length)
	}
}

func TestResultLength_TextResult(t *testing.T) {
	t.Parallel()
	result := mcp.NewToolResultText(`{"columns":["id"],"rows":[]}`)
	length := resultLength(result)
	if length != 28 {
		t.Fatalf("expected result length 28, got %d", length)
	}
}

func TestResultLength_ErrorResult(t *testing.T) {
	t.Parallel()
	result := mcp.NewToolResultError("something failed")
	length := resultLength(result)
	if length != 16 {
		t.Fatalf("expected result length 16, got %d", length)
	}
}

func TestResultLength_NilResult(t *testing.T) {
	t.Parallel()
	length := resultLength(nil)
	if length != 0 {
		t.Fatalf("expected result length 0 for nil, got %d", length)
	}
}

func TestArgInt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"missing uses default", map[string]any{}, 100},
		{"nil uses default", map[string]any{"limit": nil}, 100},
		{"json float", map[string]any{"limit": float64(25)}, 25},
		{"int", map[string]any{"limit": 25}, 25},
		{"wrong type uses default", map[string]any{"limit": "25"}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := argInt(requestWithArgs(tt.args), "limit", 100)
			if got != tt.want {
				t.Fatalf("argInt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArgStringSlice(t *testing.T) {
	t.Parallel()
	// The JSON transport delivers arrays as []any.
	req := requestWithArgs(map[string]any{
		"columns": []any{"id", "name", 42, "email"},
	})
	got := argStringSlice(req, "columns")
	if len(got) != 3 || got[0] != "id" || got[1] != "name" || got[2] != "email" {
		t.Fatalf("unexpected columns: %v", got)
	}

	if got := argStringSlice(requestWithArgs(map[string]any{}), "columns"); got != nil {
		t.Fatalf("expected nil for missing argument, got %v", got)
	}
	if got := argStringSlice(requestWithArgs(map[string]any{"columns": "id"}), "columns"); got != nil {
		t.Fatalf("expected nil for mis-typed argument, got %v", got)
	}
}

func TestArgObject(t *testing.T) {
	t.Parallel()
	req := requestWithArgs(map[string]any{
		"params": map[string]any{"id": float64(1)},
	})
	got := argObject(req, "params")
	if len(got) != 1 || got["id"] != float64(1) {
		t.Fatalf("unexpected params: %v", got)
	}

	if got := argObject(requestWithArgs(map[string]any{}), "params"); got != nil {
		t.Fatalf("expected nil for missing argument, got %v", got)
	}
	if got := argObject(requestWithArgs(map[string]any{"params": "x"}), "params"); got != nil {
		t.Fatalf("expected nil for mis-typed argument, got %v", got)
	}
}

func TestToolErrorAppendsHint(t *testing.T) {
	t.Parallel()
	err := errors.Join(ErrPoolExhausted, errors.New("all 7 connection slots in use"))
	result := toolError(err)
	if !result.IsError {
		t.Fatal("expected an error result")
	}

	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	if !strings.Contains(text.Text, "connection slots in use") {
		t.Fatalf("expected original error text, got %q", text.Text)
	}
	// The exhaustion hint is appended after the error detail.
	if !strings.Contains(text.Text, "retry") {
		t.Fatalf("expected recovery hint, got %q", text.Text)
	}
}

func TestToolErrorNoHintForPlainError(t *testing.T) {
	t.Parallel()
	result := toolError(errors.New("plain failure"))
	text, _ := mcp.AsTextContent(result.Content[0])
	if text.Text != "plain failure" {
		t.Fatalf("expected bare error text, got %q", text.Text)
	}
}

func TestToolJSON(t *testing.T) {
	t.Parallel()
	result := toolJSON(ListTablesOutput{Tables: []string{"users"}})
	if result.IsError {
		t.Fatal("did not expect an error result")
	}
	text, _ := mcp.AsTextContent(result.Content[0])
	if text.Text != `{"tables":["users"]}` {
		t.Fatalf("unexpected JSON: %q", text.Text)
	}
}

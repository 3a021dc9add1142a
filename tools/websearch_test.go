package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestWebSearchRequiresQuery(t *testing.T) {
	tool := NewWebSearchTool("key")
	result := tool.Execute(context.Background(), map[string]json.RawMessage{}, Context{})
	if result.Success {
		t.Fatal("expected failure for missing query")
	}
	if !strings.Contains(result.Error, "query") {
		t.Errorf("expected query in error, got %q", result.Error)
	}
}

func TestWebSearchRequiresAPIKey(t *testing.T) {
	tool := NewWebSearchTool("")
	args := map[string]json.RawMessage{"query": json.RawMessage(`"golang"`)}
	result := tool.Execute(context.Background(), args, Context{})
	if result.Success {
		t.Fatal("expected failure without API key")
	}
	if !strings.Contains(result.Error, "not configured") {
		t.Errorf("expected configuration error, got %q", result.Error)
	}
}

func TestWebSearchRejectsNonStringQuery(t *testing.T) {
	tool := NewWebSearchTool("key")
	args := map[string]json.RawMessage{"query": json.RawMessage(`42`)}
	result := tool.Execute(context.Background(), args, Context{})
	if result.Success {
		t.Fatal("expected failure for numeric query")
	}
}

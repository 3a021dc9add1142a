// Package tools defines the agent's tool abstraction and the built-in
// tools: web search, web scraping, Drive search and vector search.
//
// Information Hiding:
// - Each tool hides its transport and provider details behind Execute
// - Failures are returned as structured results, never as panics or
//   errors that escape to the control loop
// - The registry hides tool lookup and prompt formatting

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// executeTimeout bounds every tool invocation.
const executeTimeout = 15 * time.Second

// Parameter describes one argument a tool accepts.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Metadata describes a tool to the model and to operators.
type Metadata struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Context carries per-invocation identity into a tool.
type Context struct {
	UserID string
}

// Result is the uniform outcome of a tool invocation. Either Data or
// Error is set, never both.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Tool is a capability the agent can invoke during a run.
type Tool interface {
	Metadata() Metadata

	// Execute runs the tool. Implementations must convert every failure
	// into a Result with Success false.
	Execute(ctx context.Context, args map[string]json.RawMessage, tc Context) Result
}

// Success wraps a payload into a successful Result. Marshal failures are
// reported as a failed Result so callers never branch on an error.
func Success(data any) Result {
	raw, err := json.Marshal(data)
	if err != nil {
		return Failuref("encoding tool output: %v", err)
	}
	return Result{Success: true, Data: raw}
}

// Failure wraps an error into a failed Result.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Failuref formats a failed Result.
func Failuref(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// stringArg decodes a required string argument.
func stringArg(args map[string]json.RawMessage, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	return s, nil
}

// intArg decodes an optional integer argument, returning fallback when
// the key is absent. Numbers sent as JSON floats are truncated.
func intArg(args map[string]json.RawMessage, key string, fallback int) (int, error) {
	raw, ok := args[key]
	if !ok {
		return fallback, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("parameter %q must be a number", key)
	}
	return int(f), nil
}

// clamp restricts v to the inclusive range [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

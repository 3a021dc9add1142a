package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the tools available to the agent. Tools are registered
// at startup; lookup and execution are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Metadata().Name] = tool
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders the tool list for the system prompt: each tool's name,
// description, and a JSON schema of its parameters.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		meta := r.tools[name].Metadata()
		fmt.Fprintf(&b, "- %s: %s\n", meta.Name, meta.Description)
		fmt.Fprintf(&b, "  Parameters (JSON schema): %s\n", parameterSchema(meta.Parameters))
	}
	return b.String()
}

// Execute runs the named tool with a bounded deadline. Unknown tools and
// tool failures come back as failed Results, never as errors.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]json.RawMessage, tc Context) Result {
	tool, ok := r.Get(name)
	if !ok {
		return Failuref("unknown tool %q, available tools: %s", name, strings.Join(r.Names(), ", "))
	}
	if args == nil {
		args = map[string]json.RawMessage{}
	}

	ctx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()
	return tool.Execute(ctx, args, tc)
}

func parameterSchema(params []Parameter) string {
	properties := make(map[string]map[string]string, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		properties[p.Name] = map[string]string{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// Package tools holds the capabilities exposed to the language model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
)

// Handler is the function signature for tool implementations.
// Handlers receive the request context and JSON-encoded arguments from the LLM.
// Arguments have already been validated against the tool's parameter schema.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Result is the tool execution output that feeds back into the next LLM turn.
// IsError signals to the LLM that the tool invocation failed.
type Result struct {
	Content string
	IsError bool
}

type entry struct {
	tool     protocol.Tool
	resolved *jsonschema.Resolved
	handler  Handler
}

// Registry maps tool names to their definitions and handlers.
// The zero value is not usable; create one with NewRegistry.
// Safe for concurrent use.
type Registry struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

func newEntry(tool protocol.Tool, handler Handler) (entry, error) {
	if tool.Name == "" {
		return entry{}, ErrEmptyName
	}

	e := entry{tool: tool, handler: handler}
	if tool.Parameters != nil {
		resolved, err := tool.Parameters.Resolve(nil)
		if err != nil {
			return entry{}, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, tool.Name, err)
		}
		e.resolved = resolved
	}
	return e, nil
}

// Register adds a new tool to the registry.
// Returns ErrAlreadyExists if a tool with the same name is already registered.
// Use Replace to update an existing tool's handler.
func (r *Registry) Register(tool protocol.Tool, handler Handler) error {
	e, err := newEntry(tool, handler)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}

	r.entries[tool.Name] = e
	return nil
}

// Replace updates an existing tool's definition and handler.
// Returns ErrUnknownTool if no tool with the given name is registered.
func (r *Registry) Replace(tool protocol.Tool, handler Handler) error {
	e, err := newEntry(tool, handler)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownTool, tool.Name)
	}

	r.entries[tool.Name] = e
	return nil
}

// Lookup retrieves a tool definition by name.
// Returns ErrUnknownTool if absent.
func (r *Registry) Lookup(name string) (protocol.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return protocol.Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.tool, nil
}

// List returns the definitions of all registered tools, sorted by name so
// the model sees a stable capability list.
func (r *Registry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]protocol.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		tools = append(tools, e.tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}

// Execute dispatches a tool call to the registered handler by name.
// Returns ErrUnknownTool if the tool is not registered and ErrInvalidArguments
// when args are not a JSON object satisfying the parameter schema; in both
// cases the handler is not invoked. Handler errors are wrapped with the tool
// name and keep their chain intact for errors.Is / errors.As.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if err := validate(e, args); err != nil {
		return Result{}, err
	}

	result, err := e.handler(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s execution failed: %w", name, err)
	}

	return result, nil
}

func validate(e entry, args json.RawMessage) error {
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArguments, e.tool.Name, err)
	}
	if _, ok := instance.(map[string]any); !ok {
		return fmt.Errorf("%w: %s: arguments must be a JSON object", ErrInvalidArguments, e.tool.Name)
	}

	if e.resolved == nil {
		return nil
	}
	if err := e.resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArguments, e.tool.Name, err)
	}
	return nil
}

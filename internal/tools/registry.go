package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"agentdesk/internal/llm"
)

var (
	ErrToolRequired          = errors.New("tool is required")
	ErrToolNameRequired      = errors.New("tool name is required")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrToolNotFound          = errors.New("tool not found")
)

// DisplayRecordCreated tags a result whose payload is a created slip.
const DisplayRecordCreated = "record_created"

// DisplayData carries UI-facing structured tool output.
type DisplayData struct {
	Type    string
	Payload json.RawMessage
}

// Result carries tool output split for model and UI channels.
type Result struct {
	Content string
	Display DisplayData
}

// Tool is the runtime contract for every backend tool.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (Result, error)
}

// Registry stores tools by name and executes them by lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry constructs a registry and registers initial tools, skipping
// nil and duplicate entries.
func NewRegistry(initial ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool, len(initial)),
	}
	for _, tool := range initial {
		_ = r.Register(tool)
	}
	return r
}

// Register inserts a tool by its canonical name.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return ErrToolRequired
	}
	name := strings.TrimSpace(tool.Name())
	if name == "" {
		return ErrToolNameRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	lookup := strings.TrimSpace(name)
	if lookup == "" {
		return nil, ErrToolNameRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[lookup]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, lookup)
	}
	return tool, nil
}

// Execute resolves a named tool and runs it with provided raw JSON params.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (Result, error) {
	tool, err := r.Get(name)
	if err != nil {
		return Result{}, err
	}
	return tool.Execute(ctx, params)
}

// Specs describes the registered tools to a model, in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        name,
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	return specs
}

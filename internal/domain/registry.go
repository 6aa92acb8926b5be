package domain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// RegisteredTool is a registry entry with its resolved input schema.
type RegisteredTool struct {
	ToolDefinition
	Resolved *jsonschema.Resolved
}

// Registry holds the tool catalogue. It is populated during startup and
// frozen before serving; afterwards all access is read-only.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*RegisteredTool
	frozen bool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*RegisteredTool)}
}

// Register adds a tool definition and resolves its input schema. It
// fails on empty names, nil handlers, duplicate names, and after Freeze.
func (r *Registry) Register(def ToolDefinition) error {
	const op = "registry.register"
	if def.Name == "" {
		return E(CodeInvalidArgument, op, "tool name is empty", nil)
	}
	if def.Handler == nil {
		return E(CodeInvalidArgument, op, fmt.Sprintf("tool %q has no handler", def.Name), nil)
	}
	var resolved *jsonschema.Resolved
	if def.InputSchema != nil {
		var err error
		resolved, err = def.InputSchema.Resolve(nil)
		if err != nil {
			return E(CodeInvalidArgument, op, fmt.Sprintf("tool %q schema: %v", def.Name, err), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return E(CodeFailedPrecond, op, fmt.Sprintf("tool %q", def.Name), ErrRegistryFrozen)
	}
	if _, ok := r.tools[def.Name]; ok {
		return E(CodeAlreadyExists, op, fmt.Sprintf("tool %q", def.Name), ErrToolExists)
	}
	r.tools[def.Name] = &RegisteredTool{ToolDefinition: def, Resolved: resolved}
	return nil
}

// Freeze makes the registry read-only. Safe to call more than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup returns the registered tool for name.
func (r *Registry) Lookup(name string) (*RegisteredTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, E(CodeNotFound, "registry.lookup", fmt.Sprintf("tool %q", name), ErrToolNotFound)
	}
	return tool, nil
}

// Names returns all registered tool names in sorted order.
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

// Tools returns all registered tools sorted by name.
func (r *Registry) Tools() []*RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*RegisteredTool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

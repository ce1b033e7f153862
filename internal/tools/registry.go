package tools

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"serverless-mcp/internal/logging"
)

// Registry holds all defined tools. It is thread-safe; tool packages
// register during startup and the server reads afterwards.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	byCategory map[Category][]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		byCategory: make(map[Category][]*Tool),
	}
}

// Register adds a tool. Duplicate names and invalid definitions are
// rejected.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	r.byCategory[tool.Category] = append(r.byCategory[tool.Category], tool)

	logging.For(logging.CategoryTools).Debug("registered tool",
		zap.String("name", tool.Name),
		zap.String("category", string(tool.Category)),
		zap.Bool("read_only", tool.ReadOnly),
		zap.Bool("sensitive", tool.Sensitive))
	return nil
}

// MustRegister registers a tool and panics on error. Tool definitions are
// static, so a failure here is a programming mistake.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Permitted returns the tools the gates allow, sorted by name.
func (r *Registry) Permitted(g Gates) []*Tool {
	var out []*Tool
	for _, t := range r.List() {
		if g.Permits(t) {
			out = append(out, t)
		}
	}
	return out
}

// ByCategory returns the tools in a category sorted by name.
func (r *Registry) ByCategory(cat Category) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]*Tool(nil), r.byCategory[cat]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

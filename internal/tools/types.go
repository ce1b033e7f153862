// Package tools defines the tool model and registry for the serverless MCP
// server. Tool packages (sam, webapp, esm, metrics, guidance) register
// their tools here; the server converts registered tools into MCP tool
// declarations, honoring the write and sensitive-data gates.
package tools

import (
	"context"
	"fmt"
)

// Category groups tools for listing and logging.
type Category string

const (
	// CategorySAM covers SAM CLI lifecycle operations.
	CategorySAM Category = "/sam"

	// CategoryWebapp covers web application deployment.
	CategoryWebapp Category = "/webapp"

	// CategoryESM covers Lambda event source mapping operations.
	CategoryESM Category = "/esm"

	// CategoryMetrics covers CloudWatch metric queries.
	CategoryMetrics Category = "/metrics"

	// CategoryGuidance covers read-only guidance documents.
	CategoryGuidance Category = "/guidance"
)

// Property describes a single parameter for the tool's JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array").
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
	Enum []any  `json:"enum,omitempty"`
}

// Schema is the JSON schema of a tool's arguments.
type Schema struct {
	Required   []string            `json:"required,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc runs a tool. Returned text goes to the agent verbatim; a
// returned error becomes an MCP tool error result.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a single callable capability.
type Tool struct {
	Name        string
	Description string
	Category    Category

	// ReadOnly marks tools that never mutate cloud or local state. Tools
	// that are not read-only require the write gate.
	ReadOnly bool

	// Sensitive marks tools whose output can contain workload data (logs,
	// payloads, metric values). They require the sensitive-data gate.
	Sensitive bool

	Schema  Schema
	Execute ExecuteFunc
}

// Validate reports structural problems with the tool definition.
func (t *Tool) Validate() error {
	if t == nil {
		return ErrToolNil
	}
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return fmt.Errorf("%w: %s", ErrToolNoExecute, t.Name)
	}
	if t.Description == "" {
		return fmt.Errorf("%w: %s", ErrToolNoDescription, t.Name)
	}
	for _, req := range t.Schema.Required {
		if _, ok := t.Schema.Properties[req]; !ok {
			return fmt.Errorf("tool %s: required parameter %q has no property definition", t.Name, req)
		}
	}
	return nil
}

// Gates controls which tools are exposed to the connected agent.
type Gates struct {
	AllowWrite     bool
	AllowSensitive bool
}

// Permits reports whether the gates allow registering t.
func (g Gates) Permits(t *Tool) bool {
	if !t.ReadOnly && !g.AllowWrite {
		return false
	}
	if t.Sensitive && !g.AllowSensitive {
		return false
	}
	return true
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"serverless-mcp/internal/logging"
)

// ToMCP converts a tool definition into its MCP declaration.
func (t *Tool) ToMCP() (mcp.Tool, error) {
	schema := t.Schema
	if schema.Properties == nil {
		schema.Properties = map[string]Property{}
	}
	raw, err := json.Marshal(struct {
		Type string `json:"type"`
		Schema
	}{Type: "object", Schema: schema})
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
	}

	decl := mcp.NewToolWithRawSchema(t.Name, t.Description, raw)
	decl.Annotations = mcp.ToolAnnotation{
		Title:           t.Name,
		ReadOnlyHint:    mcp.ToBoolPtr(t.ReadOnly),
		DestructiveHint: mcp.ToBoolPtr(!t.ReadOnly),
	}
	return decl, nil
}

// Handler wraps the tool's Execute into an MCP handler. Execution errors
// become tool error results so the agent sees the message instead of a
// protocol fault.
func (t *Tool) Handler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := logging.For(logging.CategoryTools)
		start := time.Now()

		out, err := t.Execute(ctx, request.GetArguments())
		if err != nil {
			log.Warn("tool failed",
				zap.String("tool", t.Name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Info("tool completed",
			zap.String("tool", t.Name),
			zap.Duration("elapsed", time.Since(start)))
		return mcp.NewToolResultText(out), nil
	}
}

// AddAll registers every gate-permitted tool on the MCP server.
func AddAll(s *server.MCPServer, r *Registry, g Gates) error {
	for _, t := range r.Permitted(g) {
		decl, err := t.ToMCP()
		if err != nil {
			return err
		}
		s.AddTool(decl, t.Handler())
	}
	return nil
}

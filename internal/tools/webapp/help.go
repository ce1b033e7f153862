package webapp

import (
	"context"
	"fmt"

	"serverless-mcp/internal/guidance"
	"serverless-mcp/internal/tools"
)

func helpTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "webapp_deployment_help",
		Description: "Explain how web application deployments work and what each deployment type expects",
		Category:    tools.CategoryWebapp,
		ReadOnly:    true,
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"deployment_type": {
					Type:        "string",
					Description: "Narrow the help to one deployment type",
					Enum:        []any{"backend", "frontend", "fullstack"},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			doc, ok := d.Guide.Get("webapp-deployment")
			if !ok {
				return "", fmt.Errorf("guidance document webapp-deployment is missing")
			}
			if kind := tools.String(args, "deployment_type", ""); kind != "" {
				return guidance.Section(doc, kind), nil
			}
			return doc, nil
		},
	}
}

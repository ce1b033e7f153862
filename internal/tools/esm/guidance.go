package esm

import (
	"context"
	"fmt"
	"strings"

	"serverless-mcp/internal/guidance"
	"serverless-mcp/internal/tools"
)

func guidanceTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "esm_guidance",
		Description: "Explain event source mapping behavior and tuning for a source type",
		Category:    tools.CategoryESM,
		ReadOnly:    true,
		Schema: tools.Schema{
			Required: []string{"event_source"},
			Properties: map[string]tools.Property{
				"event_source": {
					Type:        "string",
					Description: "Source service the mapping reads from",
					Enum:        []any{"kinesis", "dynamodb", "sqs", "kafka", "msk"},
				},
				"topic": {Type: "string", Description: "Kafka topic name, echoed into the examples"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			source, err := tools.RequiredString(args, "event_source")
			if err != nil {
				return "", err
			}
			// MSK and self-managed Kafka share one section.
			if source == "msk" {
				source = "kafka"
			}

			doc, ok := d.Guide.Get("event-source-mappings")
			if !ok {
				return "", fmt.Errorf("guidance document event-source-mappings is missing")
			}
			section := guidance.Section(doc, source)
			if topic := tools.String(args, "topic", ""); topic != "" {
				section = strings.ReplaceAll(section, "<topic>", topic)
			}
			return section, nil
		},
	}
}

// Package guide exposes the embedded guidance documents and the
// deployment history as read-only tools.
package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/guidance"
	"serverless-mcp/internal/tools"
)

// Deps bundles what the guide tools depend on.
type Deps struct {
	Guide *guidance.Library
	Store *deploystore.Store
}

// topicDocs maps get_lambda_guidance topics to guidance documents.
var topicDocs = map[string]string{
	"fit":             "lambda-guidance",
	"setup":           "project-setup",
	"troubleshooting": "troubleshooting",
	"webapp":          "webapp-deployment",
	"event-sources":   "event-source-mappings",
	"optimization":    "optimization",
}

func lambdaGuidanceTool(d Deps) *tools.Tool {
	topics := make([]any, 0, len(topicDocs))
	for t := range topicDocs {
		topics = append(topics, t)
	}

	return &tools.Tool{
		Name:        "get_lambda_guidance",
		Description: "Return guidance on serverless development: when Lambda fits, project setup, tuning, troubleshooting",
		Category:    tools.CategoryGuidance,
		ReadOnly:    true,
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"topic": {
					Type:        "string",
					Description: "Guidance topic (default: when to use Lambda)",
					Enum:        topics,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			topic := tools.String(args, "topic", "fit")
			name, ok := topicDocs[topic]
			if !ok {
				return "", fmt.Errorf("unknown topic %q", topic)
			}
			doc, ok := d.Guide.Get(name)
			if !ok {
				return "", fmt.Errorf("guidance document %s is missing", name)
			}
			return doc, nil
		},
	}
}

func listDeploymentsTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "list_deployments",
		Description: "List recent deployments recorded by this server, newest first",
		Category:    tools.CategoryGuidance,
		ReadOnly:    true,
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"limit": {Type: "integer", Description: "Maximum rows to return (default 20)", Default: 20},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			limit := tools.Int(args, "limit", 20)
			if limit <= 0 {
				return "", fmt.Errorf("limit must be positive, got %d", limit)
			}
			deployments, err := d.Store.List(ctx, limit)
			if err != nil && !errors.Is(err, deploystore.ErrNotFound) {
				return "", err
			}
			if len(deployments) == 0 {
				return "No deployments recorded yet.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%-20s %-22s %-24s %-10s %s\n", "started", "tool", "project", "status", "detail")
			for _, dep := range deployments {
				detail := dep.StackName
				if detail == "" {
					detail = dep.Bucket
				}
				if dep.DomainName != "" {
					detail += " " + dep.DomainName
				}
				fmt.Fprintf(&b, "%-20s %-22s %-24s %-10s %s\n",
					dep.StartedAt.UTC().Format(time.RFC3339), dep.Tool, dep.Project, dep.Status, detail)
			}
			return b.String(), nil
		},
	}
}

// Register adds the guide tools to the registry.
func Register(reg *tools.Registry, d Deps) error {
	for _, t := range []*tools.Tool{
		lambdaGuidanceTool(d),
		listDeploymentsTool(d),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

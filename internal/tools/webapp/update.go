package webapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/tools"
)

func updateFrontendTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "update_webapp_frontend",
		Description: "Re-sync built frontend assets to a previously deployed site bucket",
		Category:    tools.CategoryWebapp,
		Schema: tools.Schema{
			Required: []string{"project_name", "built_assets_path"},
			Properties: map[string]tools.Property{
				"project_name":      {Type: "string", Description: "Project the site was deployed under"},
				"built_assets_path": {Type: "string", Description: "Directory of freshly built assets"},
				"invalidate_cache": {
					Type:        "boolean",
					Description: "Invalidate the CloudFront cache after the sync",
					Default:     true,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, err := tools.RequiredString(args, "project_name")
			if err != nil {
				return "", err
			}
			assets, err := tools.RequiredString(args, "built_assets_path")
			if err != nil {
				return "", err
			}

			prior, err := d.Store.Latest(ctx, project)
			if errors.Is(err, deploystore.ErrNotFound) {
				return "", fmt.Errorf("no deployment recorded for %s; run deploy_webapp first", project)
			}
			if err != nil {
				return "", err
			}
			if prior.Bucket == "" {
				return "", fmt.Errorf("latest deployment of %s has no site bucket; was it a backend-only deploy?", project)
			}

			started := time.Now().UTC()
			count, syncErr := syncAssets(ctx, d.Uploader, prior.Bucket, assets)
			d.record(ctx, deploystore.Deployment{
				Project:      project,
				Tool:         "update_webapp_frontend",
				Region:       prior.Region,
				Bucket:       prior.Bucket,
				Distribution: prior.Distribution,
				DomainName:   prior.DomainName,
				Status:       statusOf(syncErr),
				Error:        errText(syncErr),
				StartedAt:    started,
			})
			if syncErr != nil {
				return "", fmt.Errorf("frontend sync failed: %w", syncErr)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Frontend updated: %d files to s3://%s.\n", count, prior.Bucket)
			if tools.Bool(args, "invalidate_cache", true) && prior.Distribution != "" {
				if err := d.invalidate(ctx, prior.Distribution); err != nil {
					return "", fmt.Errorf("assets uploaded but cache invalidation failed: %w", err)
				}
				fmt.Fprintf(&b, "CloudFront distribution %s invalidated (/*).\n", prior.Distribution)
			}
			return b.String(), nil
		},
	}
}

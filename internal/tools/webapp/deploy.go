package webapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/samcli"
	"serverless-mcp/internal/tools"
)

func deployTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "deploy_webapp",
		Description: "Deploy a web application: frontend assets to S3, backend as a Lambda-backed HTTP API, or both",
		Category:    tools.CategoryWebapp,
		Schema: tools.Schema{
			Required: []string{"deployment_type", "project_name", "project_root"},
			Properties: map[string]tools.Property{
				"deployment_type": {
					Type:        "string",
					Description: "What to deploy",
					Enum:        []any{"backend", "frontend", "fullstack"},
				},
				"project_name": {Type: "string", Description: "Project identifier; names the stack and site bucket"},
				"project_root": {Type: "string", Description: "Root directory of the project"},
				"frontend": {
					Type:        "object",
					Description: "Frontend settings: built_assets_path (required for frontend deploys), index_document, distribution_id",
				},
				"backend": {
					Type:        "object",
					Description: "Backend settings: built_artifacts_path and runtime (required for backend deploys), port, stage",
				},
				"region": {Type: "string", Description: "Target region; defaults to the server's region"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			kind, err := tools.RequiredString(args, "deployment_type")
			if err != nil {
				return "", err
			}
			project, err := tools.RequiredString(args, "project_name")
			if err != nil {
				return "", err
			}
			root, err := tools.RequiredString(args, "project_root")
			if err != nil {
				return "", err
			}
			region := tools.String(args, "region", d.Region)

			var b strings.Builder
			switch kind {
			case "backend", "frontend", "fullstack":
			default:
				return "", fmt.Errorf("deployment_type must be backend, frontend or fullstack, got %q", kind)
			}

			if kind == "backend" || kind == "fullstack" {
				msg, err := d.deployBackend(ctx, project, root, region, nested(args, "backend"))
				if err != nil {
					return "", err
				}
				b.WriteString(msg)
			}
			if kind == "frontend" || kind == "fullstack" {
				msg, err := d.deployFrontend(ctx, project, region, nested(args, "frontend"))
				if err != nil {
					return "", err
				}
				b.WriteString(msg)
			}
			return b.String(), nil
		},
	}
}

func (d Deps) deployBackend(ctx context.Context, project, root, region string, opts map[string]any) (string, error) {
	artifacts, err := tools.RequiredString(opts, "built_artifacts_path")
	if err != nil {
		return "", fmt.Errorf("backend deploy: %w", err)
	}
	runtime, err := tools.RequiredString(opts, "runtime")
	if err != nil {
		return "", fmt.Errorf("backend deploy: %w", err)
	}

	if _, err := writeBackendTemplate(root, backendParams{
		Project:       project,
		ArtifactsPath: artifacts,
		Runtime:       runtime,
		Port:          tools.Int(opts, "port", 8080),
	}); err != nil {
		return "", err
	}

	stackName := project + "-backend"
	if stage := tools.String(opts, "stage", ""); stage != "" {
		stackName = fmt.Sprintf("%s-%s-backend", project, stage)
	}

	started := time.Now().UTC()
	out, deployErr := d.CLI.Deploy(ctx, root, samcli.DeployInput{
		StackName:    stackName,
		Region:       region,
		Capabilities: []string{"CAPABILITY_IAM"},
	})
	d.record(ctx, deploystore.Deployment{
		Project:   project,
		Tool:      "deploy_webapp",
		StackName: stackName,
		Region:    region,
		Status:    statusOf(deployErr),
		Error:     errText(deployErr),
		StartedAt: started,
	})
	if deployErr != nil {
		return "", fmt.Errorf("backend deploy failed: %w\n\n%s", deployErr, out)
	}
	return fmt.Sprintf("Backend deployed as stack %s.\n\n%s\n", stackName, out), nil
}

func (d Deps) deployFrontend(ctx context.Context, project, region string, opts map[string]any) (string, error) {
	assets, err := tools.RequiredString(opts, "built_assets_path")
	if err != nil {
		return "", fmt.Errorf("frontend deploy: %w", err)
	}
	index := tools.String(opts, "index_document", "index.html")
	distribution := tools.String(opts, "distribution_id", "")

	bucket := siteBucketName(project, region)
	if prior, err := d.Store.Latest(ctx, project); err == nil && prior.Bucket != "" {
		bucket = prior.Bucket
		if distribution == "" {
			distribution = prior.Distribution
		}
	}

	if err := d.ensureSiteBucket(ctx, bucket, region, index); err != nil {
		return "", err
	}

	started := time.Now().UTC()
	count, syncErr := syncAssets(ctx, d.Uploader, bucket, assets)
	d.record(ctx, deploystore.Deployment{
		Project:      project,
		Tool:         "deploy_webapp",
		Region:       region,
		Bucket:       bucket,
		Distribution: distribution,
		Status:       statusOf(syncErr),
		Error:        errText(syncErr),
		StartedAt:    started,
	})
	if syncErr != nil {
		return "", fmt.Errorf("frontend sync failed: %w", syncErr)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Frontend synced: %d files to s3://%s.\n", count, bucket)
	if distribution != "" {
		if err := d.invalidate(ctx, distribution); err != nil {
			return "", fmt.Errorf("assets uploaded but cache invalidation failed: %w", err)
		}
		fmt.Fprintf(&b, "CloudFront distribution %s invalidated (/*).\n", distribution)
	}
	fmt.Fprintf(&b, "Site endpoint: http://%s.s3-website.%s.amazonaws.com\n", bucket, region)
	return b.String(), nil
}

// ensureSiteBucket creates the bucket with static website hosting when it
// does not exist yet. An existing bucket is reused untouched.
func (d Deps) ensureSiteBucket(ctx context.Context, bucket, region, index string) error {
	if _, err := d.Buckets.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != "" && region != "us-east-1" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}
	if _, err := d.Buckets.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("create site bucket %s: %w", bucket, err)
	}

	_, err := d.Buckets.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket: aws.String(bucket),
		WebsiteConfiguration: &s3types.WebsiteConfiguration{
			IndexDocument: &s3types.IndexDocument{Suffix: aws.String(index)},
			// Single-page apps route every path through the index page.
			ErrorDocument: &s3types.ErrorDocument{Key: aws.String(index)},
		},
	})
	if err != nil {
		return fmt.Errorf("configure website hosting on %s: %w", bucket, err)
	}
	return nil
}

func (d Deps) invalidate(ctx context.Context, distributionID string) error {
	_, err := d.CDN.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(uuid.NewString()),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{"/*"},
			},
		},
	})
	return err
}

func (d Deps) record(ctx context.Context, dep deploystore.Deployment) {
	if d.Store == nil {
		return
	}
	_, _ = d.Store.Record(ctx, dep)
}

// siteBucketName derives a deterministic, S3-legal bucket name.
func siteBucketName(project, region string) string {
	name := strings.ToLower(project)
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return '-'
	}, name)
	return fmt.Sprintf("%s-site-%s", strings.Trim(name, "-"), region)
}

func statusOf(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}

func errText(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}

// nested returns a sub-object argument, or an empty map when absent.
func nested(args map[string]any, key string) map[string]any {
	if m, ok := args[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

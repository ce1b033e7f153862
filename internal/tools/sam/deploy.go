package sam

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/samcli"
	"serverless-mcp/internal/samconfig"
	"serverless-mcp/internal/tools"
)

func deployTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "sam_deploy",
		Description: "Deploy a built SAM application as a CloudFormation stack",
		Category:    tools.CategorySAM,
		Schema: tools.Schema{
			Required: []string{"project_dir"},
			Properties: map[string]tools.Property{
				"project_dir": {Type: "string", Description: "Directory containing the built application"},
				"stack_name":  {Type: "string", Description: "CloudFormation stack name; defaults to the value saved in samconfig.toml"},
				"region":      {Type: "string", Description: "Target region; defaults to the server's region"},
				"s3_bucket":   {Type: "string", Description: "Artifact bucket; omitted, SAM resolves its own"},
				"capabilities": {
					Type:        "array",
					Description: "IAM capabilities to acknowledge (default CAPABILITY_IAM)",
					Items:       &tools.PropertyItems{Type: "string"},
				},
				"parameter_overrides": {Type: "object", Description: "Template parameter values as key/value pairs"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := tools.RequiredString(args, "project_dir")
			if err != nil {
				return "", err
			}
			tpl, err := validateProject(dir)
			if err != nil {
				return "", fmt.Errorf("not a deployable SAM project: %w", err)
			}

			cfgFile, err := samconfig.Load(dir)
			if err != nil {
				return "", err
			}
			saved := cfgFile.DeployParams(samconfig.DefaultEnv)

			stackName := tools.String(args, "stack_name", saved.StackName)
			if stackName == "" {
				return "", fmt.Errorf("parameter %q is required on first deploy (no stack recorded in samconfig.toml)", "stack_name")
			}
			region := tools.String(args, "region", firstNonEmpty(saved.Region, d.Region))

			in := samcli.DeployInput{
				StackName:          stackName,
				Region:             region,
				S3Bucket:           tools.String(args, "s3_bucket", saved.S3Bucket),
				Capabilities:       tools.StringSlice(args, "capabilities"),
				ParameterOverrides: tools.StringMap(args, "parameter_overrides"),
			}

			started := time.Now().UTC()
			out, deployErr := d.CLI.Deploy(ctx, dir, in)

			status := "succeeded"
			errText := ""
			if deployErr != nil {
				status = "failed"
				errText = deployErr.Error()
			}
			if d.Store != nil {
				_, _ = d.Store.Record(ctx, deploystore.Deployment{
					Project:   stackName,
					Tool:      "sam_deploy",
					StackName: stackName,
					Region:    region,
					Status:    status,
					Error:     errText,
					StartedAt: started,
				})
			}
			if deployErr != nil {
				return "", samErr("sam deploy", out, deployErr)
			}

			// Persist the parameters that worked.
			cfgFile.SetDeployParams(samconfig.DefaultEnv, samconfig.DeployParams{
				StackName:    stackName,
				Region:       region,
				S3Bucket:     in.S3Bucket,
				ResolveS3:    in.S3Bucket == "",
				Capabilities: strings.Join(effectiveCapabilities(in.Capabilities), " "),
			})
			if err := cfgFile.Save(dir); err != nil {
				return "", err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Stack %s deployed (%d functions).\n", stackName, len(tpl.Functions()))
			if outputs := d.stackOutputs(ctx, stackName); outputs != "" {
				fmt.Fprintf(&b, "\nStack outputs:\n%s", outputs)
			}
			fmt.Fprintf(&b, "\n%s", out)
			return b.String(), nil
		},
	}
}

func (d Deps) stackOutputs(ctx context.Context, stackName string) string {
	if d.Stacks == nil {
		return ""
	}
	resp, err := d.Stacks.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil || len(resp.Stacks) == 0 {
		return ""
	}
	var b strings.Builder
	for _, o := range resp.Stacks[0].Outputs {
		fmt.Fprintf(&b, "  %s = %s\n", aws.ToString(o.OutputKey), aws.ToString(o.OutputValue))
	}
	return b.String()
}

func effectiveCapabilities(caps []string) []string {
	if len(caps) == 0 {
		return []string{"CAPABILITY_IAM"}
	}
	return caps
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

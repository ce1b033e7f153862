package sam

import (
	"context"
	"fmt"
	"time"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/samcli"
	"serverless-mcp/internal/samconfig"
	"serverless-mcp/internal/tools"
)

func deleteTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "sam_delete",
		Description: "Delete a deployed CloudFormation stack and its artifacts",
		Category:    tools.CategorySAM,
		Schema: tools.Schema{
			Required: []string{"project_dir"},
			Properties: map[string]tools.Property{
				"project_dir": {Type: "string", Description: "Directory of the SAM project"},
				"stack_name":  {Type: "string", Description: "Stack to delete; defaults to the value saved in samconfig.toml"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := tools.RequiredString(args, "project_dir")
			if err != nil {
				return "", err
			}

			stackName := tools.String(args, "stack_name", "")
			if stackName == "" {
				cfgFile, err := samconfig.Load(dir)
				if err != nil {
					return "", err
				}
				stackName = cfgFile.DeployParams(samconfig.DefaultEnv).StackName
			}
			if stackName == "" {
				return "", fmt.Errorf("parameter %q is required (no stack recorded in samconfig.toml)", "stack_name")
			}

			started := time.Now().UTC()
			out, delErr := d.CLI.Delete(ctx, dir, samcli.DeleteInput{
				StackName: stackName,
				Region:    d.Region,
			})

			status := "succeeded"
			errText := ""
			if delErr != nil {
				status = "failed"
				errText = delErr.Error()
			}
			if d.Store != nil {
				_, _ = d.Store.Record(ctx, deploystore.Deployment{
					Project:   stackName,
					Tool:      "sam_delete",
					StackName: stackName,
					Region:    d.Region,
					Status:    status,
					Error:     errText,
					StartedAt: started,
				})
			}
			if delErr != nil {
				return "", samErr("sam delete", out, delErr)
			}
			return fmt.Sprintf("Stack %s deleted.\n\n%s", stackName, out), nil
		},
	}
}

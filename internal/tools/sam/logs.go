package sam

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"serverless-mcp/internal/tools"
)

// maxLogEvents bounds a single sam_logs response.
const maxLogEvents = 200

func logsTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "sam_logs",
		Description: "Fetch recent CloudWatch logs for a deployed Lambda function",
		Category:    tools.CategorySAM,
		ReadOnly:    true,
		Sensitive:   true,
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"function_name": {Type: "string", Description: "Physical function name (or logical id with stack_name)"},
				"stack_name":    {Type: "string", Description: "Stack to resolve the logical id against"},
				"start_time":    {Type: "string", Description: "RFC 3339 start of the window (default: 1 hour ago)"},
				"end_time":      {Type: "string", Description: "RFC 3339 end of the window (default: now)"},
				"filter":        {Type: "string", Description: "CloudWatch Logs filter pattern, e.g. ERROR"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fnName := tools.String(args, "function_name", "")
			stackName := tools.String(args, "stack_name", "")
			if fnName == "" && stackName == "" {
				return "", fmt.Errorf("one of function_name or stack_name is required")
			}

			if stackName != "" {
				resolved, err := d.resolveFunctionName(ctx, stackName, fnName)
				if err != nil {
					return "", err
				}
				fnName = resolved
			}

			now := time.Now().UTC()
			start, err := tools.Time(args, "start_time", now.Add(-time.Hour))
			if err != nil {
				return "", err
			}
			end, err := tools.Time(args, "end_time", now)
			if err != nil {
				return "", err
			}
			if !end.After(start) {
				return "", fmt.Errorf("end_time must be after start_time")
			}

			input := &cloudwatchlogs.FilterLogEventsInput{
				LogGroupName: aws.String("/aws/lambda/" + fnName),
				StartTime:    aws.Int64(start.UnixMilli()),
				EndTime:      aws.Int64(end.UnixMilli()),
			}
			if f := tools.String(args, "filter", ""); f != "" {
				input.FilterPattern = aws.String(f)
			}

			var b strings.Builder
			count := 0
			for {
				resp, err := d.Logs.FilterLogEvents(ctx, input)
				if err != nil {
					return "", fmt.Errorf("fetch logs for %s: %w", fnName, err)
				}
				for _, ev := range resp.Events {
					ts := time.UnixMilli(aws.ToInt64(ev.Timestamp)).UTC().Format(time.RFC3339)
					fmt.Fprintf(&b, "%s %s", ts, strings.TrimRight(aws.ToString(ev.Message), "\n"))
					b.WriteByte('\n')
					count++
					if count >= maxLogEvents {
						fmt.Fprintf(&b, "... truncated at %d events; narrow the window or add a filter\n", maxLogEvents)
						return b.String(), nil
					}
				}
				if resp.NextToken == nil {
					break
				}
				input.NextToken = resp.NextToken
			}

			if count == 0 {
				return fmt.Sprintf("No log events for %s between %s and %s.",
					fnName, start.Format(time.RFC3339), end.Format(time.RFC3339)), nil
			}
			return b.String(), nil
		},
	}
}

// resolveFunctionName maps a logical id (or the stack's only function) to
// the physical function name.
func (d Deps) resolveFunctionName(ctx context.Context, stackName, logicalID string) (string, error) {
	if d.Stacks == nil {
		return "", fmt.Errorf("stack resolution unavailable")
	}

	var functions []cfntypes.StackResourceSummary
	var next *string
	for {
		resp, err := d.Stacks.ListStackResources(ctx, &cloudformation.ListStackResourcesInput{
			StackName: aws.String(stackName),
			NextToken: next,
		})
		if err != nil {
			return "", fmt.Errorf("list resources of stack %s: %w", stackName, err)
		}
		for _, res := range resp.StackResourceSummaries {
			if aws.ToString(res.ResourceType) == "AWS::Lambda::Function" {
				functions = append(functions, res)
			}
		}
		if resp.NextToken == nil {
			break
		}
		next = resp.NextToken
	}

	if len(functions) == 0 {
		return "", fmt.Errorf("stack %s contains no Lambda functions", stackName)
	}
	if logicalID == "" {
		if len(functions) == 1 {
			return aws.ToString(functions[0].PhysicalResourceId), nil
		}
		var ids []string
		for _, fn := range functions {
			ids = append(ids, aws.ToString(fn.LogicalResourceId))
		}
		return "", fmt.Errorf("stack %s has %d functions; pass function_name as one of: %s",
			stackName, len(functions), strings.Join(ids, ", "))
	}
	for _, fn := range functions {
		if aws.ToString(fn.LogicalResourceId) == logicalID {
			return aws.ToString(fn.PhysicalResourceId), nil
		}
	}
	return "", fmt.Errorf("no function %s in stack %s", logicalID, stackName)
}

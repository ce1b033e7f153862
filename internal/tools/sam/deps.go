// Package sam implements the SAM application lifecycle tools: sam_init,
// sam_build, sam_deploy, sam_local_invoke, sam_logs, and sam_delete.
package sam

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/samcli"
)

// LogsAPI is the CloudWatch Logs surface sam_logs needs.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// StacksAPI is the CloudFormation surface the deploy and logs tools need.
type StacksAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	ListStackResources(ctx context.Context, params *cloudformation.ListStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error)
}

// Deps carries everything the sam tools touch.
type Deps struct {
	CLI    *samcli.CLI
	Logs   LogsAPI
	Stacks StacksAPI
	Store  *deploystore.Store
	Region string

	// RequireDocker makes container builds and local invocation probe the
	// docker daemon before the slow SAM call, failing fast with a hint.
	RequireDocker bool
}

package sam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/samcli"
	"serverless-mcp/internal/samconfig"
)

const testTemplate = `
Transform: AWS::Serverless-2016-10-31
Resources:
  ApiFunction:
    Type: AWS::Serverless::Function
    Properties:
      Handler: app.handler
      Runtime: python3.13
`

// fakeRunner records invocations and plays back canned results per binary.
type fakeRunner struct {
	commands []samcli.Command
	outputs  map[string]string // keyed by binary
	errs     map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, cmd samcli.Command) (string, error) {
	f.commands = append(f.commands, cmd)
	return f.outputs[cmd.Binary], f.errs[cmd.Binary]
}

type fakeLogs struct {
	pages []*cloudwatchlogs.FilterLogEventsOutput
	calls int
	err   error
}

func (f *fakeLogs) FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeStacks struct {
	resources []cfntypes.StackResourceSummary
	outputs   []cfntypes.Output
}

func (f *fakeStacks) DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	return &cloudformation.DescribeStacksOutput{
		Stacks: []cfntypes.Stack{{StackName: in.StackName, Outputs: f.outputs}},
	}, nil
}

func (f *fakeStacks) ListStackResources(ctx context.Context, in *cloudformation.ListStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error) {
	return &cloudformation.ListStackResourcesOutput{StackResourceSummaries: f.resources}, nil
}

func projectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.yaml"), []byte(testTemplate), 0o644))
	return dir
}

func depsWithRunner(t *testing.T, runner samcli.Runner) Deps {
	t.Helper()
	store, err := deploystore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return Deps{
		CLI:           samcli.NewWithRunner(samcli.Config{Region: "eu-west-1"}, runner),
		Stacks:        &fakeStacks{},
		Store:         store,
		Region:        "eu-west-1",
		RequireDocker: true,
	}
}

func TestDeployFirstTimeRequiresStackName(t *testing.T) {
	d := depsWithRunner(t, &fakeRunner{})
	_, err := deployTool(d).Execute(context.Background(), map[string]any{
		"project_dir": projectDir(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack_name")
}

func TestDeployRecordsAndPersists(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"sam": "Successfully created/updated stack"}}
	d := depsWithRunner(t, runner)
	d.Stacks = &fakeStacks{outputs: []cfntypes.Output{{
		OutputKey:   aws.String("ApiUrl"),
		OutputValue: aws.String("https://abc.execute-api.eu-west-1.amazonaws.com/Prod"),
	}}}

	dir := projectDir(t)
	out, err := deployTool(d).Execute(context.Background(), map[string]any{
		"project_dir": dir,
		"stack_name":  "orders-api",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Stack orders-api deployed")
	assert.Contains(t, out, "ApiUrl")

	// Parameters persisted for the next run.
	cfg, err := samconfig.Load(dir)
	require.NoError(t, err)
	saved := cfg.DeployParams(samconfig.DefaultEnv)
	assert.Equal(t, "orders-api", saved.StackName)
	assert.Equal(t, "eu-west-1", saved.Region)
	assert.True(t, saved.ResolveS3)

	// Deployment recorded.
	latest, err := d.Store.Latest(context.Background(), "orders-api")
	require.NoError(t, err)
	assert.Equal(t, "sam_deploy", latest.Tool)
	assert.Equal(t, "succeeded", latest.Status)

	// A second deploy may omit stack_name.
	_, err = deployTool(d).Execute(context.Background(), map[string]any{"project_dir": dir})
	require.NoError(t, err)
}

func TestDeployFailureIsRecorded(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{"sam": "Error: Stack orders is in ROLLBACK_COMPLETE state"},
		errs:    map[string]error{"sam": &samcli.CommandError{Binary: "sam", ExitCode: 1, Output: "ROLLBACK_COMPLETE"}},
	}
	d := depsWithRunner(t, runner)

	_, err := deployTool(d).Execute(context.Background(), map[string]any{
		"project_dir": projectDir(t),
		"stack_name":  "orders",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hint:")

	list, listErr := d.Store.List(context.Background(), 5)
	require.NoError(t, listErr)
	require.Len(t, list, 1)
	assert.Equal(t, "failed", list[0].Status)
}

func TestDeployRejectsNonProject(t *testing.T) {
	d := depsWithRunner(t, &fakeRunner{})
	_, err := deployTool(d).Execute(context.Background(), map[string]any{
		"project_dir": t.TempDir(),
		"stack_name":  "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a deployable SAM project")
}

func TestBuildChecksDockerForContainerBuilds(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"docker": errors.New("daemon unreachable")}}
	d := depsWithRunner(t, runner)

	_, err := buildTool(d).Execute(context.Background(), map[string]any{
		"project_dir":   projectDir(t),
		"use_container": true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, samcli.ErrDockerNotRunning))

	// Without containers the build goes straight to sam.
	_, err = buildTool(d).Execute(context.Background(), map[string]any{"project_dir": projectDir(t)})
	require.NoError(t, err)
	last := runner.commands[len(runner.commands)-1]
	assert.Equal(t, "sam", last.Binary)
	assert.Equal(t, []string{"build"}, last.Args)
}

func TestLocalInvokeWritesEventAndEnvFiles(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"sam": `{"statusCode":200}`, "docker": "24.0"}}
	d := depsWithRunner(t, runner)

	out, err := localInvokeTool(d).Execute(context.Background(), map[string]any{
		"project_dir": projectDir(t),
		"function_id": "ApiFunction",
		"event":       `{"path":"/orders"}`,
		"env_vars":    map[string]any{"STAGE": "test"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "statusCode")

	last := runner.commands[len(runner.commands)-1]
	assert.Equal(t, "sam", last.Binary)
	assert.Contains(t, last.Args, "--event")
	assert.Contains(t, last.Args, "--env-vars")
}

func TestLogsResolvesLogicalID(t *testing.T) {
	stacks := &fakeStacks{resources: []cfntypes.StackResourceSummary{
		{
			ResourceType:       aws.String("AWS::Lambda::Function"),
			LogicalResourceId:  aws.String("ApiFunction"),
			PhysicalResourceId: aws.String("orders-api-ApiFunction-X1Y2"),
		},
	}}
	logs := &fakeLogs{pages: []*cloudwatchlogs.FilterLogEventsOutput{{
		Events: []cwltypes.FilteredLogEvent{
			{Timestamp: aws.Int64(1754042400000), Message: aws.String("START RequestId: abc")},
			{Timestamp: aws.Int64(1754042400500), Message: aws.String("Task timed out after 30.00 seconds\n")},
		},
	}}}
	d := Deps{Logs: logs, Stacks: stacks}

	out, err := logsTool(d).Execute(context.Background(), map[string]any{
		"stack_name": "orders-api",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Task timed out")
	assert.False(t, strings.HasSuffix(out, "\n\n"), "messages are newline-trimmed")
}

func TestLogsPaginatesAndTruncates(t *testing.T) {
	var pages []*cloudwatchlogs.FilterLogEventsOutput
	for p := 0; p < 3; p++ {
		var events []cwltypes.FilteredLogEvent
		for i := 0; i < 100; i++ {
			events = append(events, cwltypes.FilteredLogEvent{
				Timestamp: aws.Int64(1754042400000 + int64(p*100+i)),
				Message:   aws.String(fmt.Sprintf("line %d", p*100+i)),
			})
		}
		page := &cloudwatchlogs.FilterLogEventsOutput{Events: events}
		if p < 2 {
			page.NextToken = aws.String(fmt.Sprintf("token-%d", p))
		}
		pages = append(pages, page)
	}
	lf := &fakeLogs{pages: pages}
	d := Deps{Logs: lf}

	out, err := logsTool(d).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "truncated at 200 events")
	assert.Equal(t, 2, lf.calls, "stops fetching once truncated")
}

func TestLogsNoEvents(t *testing.T) {
	d := Deps{Logs: &fakeLogs{pages: []*cloudwatchlogs.FilterLogEventsOutput{{}}}}
	out, err := logsTool(d).Execute(context.Background(), map[string]any{
		"function_name": "quiet-fn",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No log events")
}

func TestLogsRequiresTarget(t *testing.T) {
	d := Deps{Logs: &fakeLogs{}}
	_, err := logsTool(d).Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestLogsRejectsInvertedWindow(t *testing.T) {
	d := Deps{Logs: &fakeLogs{}}
	_, err := logsTool(d).Execute(context.Background(), map[string]any{
		"function_name": "fn",
		"start_time":    "2026-08-02T00:00:00Z",
		"end_time":      "2026-08-01T00:00:00Z",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_time")
}

func TestDeleteUsesSavedStackName(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"sam": "Deleted successfully"}}
	d := depsWithRunner(t, runner)

	dir := projectDir(t)
	cfg, err := samconfig.Load(dir)
	require.NoError(t, err)
	cfg.SetDeployParams(samconfig.DefaultEnv, samconfig.DeployParams{StackName: "orders-api"})
	require.NoError(t, cfg.Save(dir))

	out, err := deleteTool(d).Execute(context.Background(), map[string]any{"project_dir": dir})
	require.NoError(t, err)
	assert.Contains(t, out, "Stack orders-api deleted")

	require.Len(t, runner.commands, 1)
	assert.Equal(t, "sam", runner.commands[0].Binary)
	assert.Equal(t,
		[]string{"delete", "--stack-name", "orders-api", "--no-prompts", "--region", "eu-west-1"},
		runner.commands[0].Args)

	latest, err := d.Store.Latest(context.Background(), "orders-api")
	require.NoError(t, err)
	assert.Equal(t, "sam_delete", latest.Tool)
	assert.Equal(t, "succeeded", latest.Status)
}

func TestDeleteWithoutStackNameAnywhere(t *testing.T) {
	d := depsWithRunner(t, &fakeRunner{})
	_, err := deleteTool(d).Execute(context.Background(), map[string]any{"project_dir": projectDir(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack_name")
}

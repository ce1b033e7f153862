package samcli

import (
	"fmt"
	"sort"
	"strings"
)

// InitInput describes a sam init invocation. Name and Runtime are required.
type InitInput struct {
	Name              string
	Runtime           string
	DependencyManager string
	Architecture      string
	TemplateName      string // quick-start template, e.g. hello-world
}

// InitArgs builds the non-interactive sam init argument list.
func (in InitInput) InitArgs() ([]string, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if in.Runtime == "" {
		return nil, fmt.Errorf("runtime is required")
	}
	args := []string{"init", "--no-interactive", "--name", in.Name, "--runtime", in.Runtime, "--package-type", "Zip"}
	template := in.TemplateName
	if template == "" {
		template = "hello-world"
	}
	args = append(args, "--app-template", template)
	if in.DependencyManager != "" {
		args = append(args, "--dependency-manager", in.DependencyManager)
	}
	if in.Architecture != "" {
		args = append(args, "--architecture", in.Architecture)
	}
	return args, nil
}

// BuildInput describes a sam build invocation.
type BuildInput struct {
	UseContainer bool
	Parallel     bool
}

// BuildArgs builds the sam build argument list.
func (in BuildInput) BuildArgs() []string {
	args := []string{"build"}
	if in.UseContainer {
		args = append(args, "--use-container")
	}
	if in.Parallel {
		args = append(args, "--parallel")
	}
	return args
}

// DeployInput describes a sam deploy invocation.
type DeployInput struct {
	StackName          string
	Region             string
	S3Bucket           string
	Capabilities       []string
	ParameterOverrides map[string]string
}

// DeployArgs builds the sam deploy argument list. Deploys are always
// non-interactive; an MCP tool has no terminal to answer prompts on.
func (in DeployInput) DeployArgs() ([]string, error) {
	if in.StackName == "" {
		return nil, fmt.Errorf("stack name is required")
	}
	args := []string{"deploy", "--stack-name", in.StackName, "--no-confirm-changeset", "--no-fail-on-empty-changeset"}
	if in.Region != "" {
		args = append(args, "--region", in.Region)
	}
	if in.S3Bucket != "" {
		args = append(args, "--s3-bucket", in.S3Bucket)
	} else {
		args = append(args, "--resolve-s3")
	}
	caps := in.Capabilities
	if len(caps) == 0 {
		caps = []string{"CAPABILITY_IAM"}
	}
	args = append(args, "--capabilities")
	args = append(args, caps...)
	if len(in.ParameterOverrides) > 0 {
		keys := make([]string, 0, len(in.ParameterOverrides))
		for k := range in.ParameterOverrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, in.ParameterOverrides[k]))
		}
		args = append(args, "--parameter-overrides", strings.Join(pairs, " "))
	}
	return args, nil
}

// LocalInvokeInput describes a sam local invoke invocation.
type LocalInvokeInput struct {
	FunctionID  string
	EventFile   string
	EnvVarsFile string
}

// LocalInvokeArgs builds the sam local invoke argument list.
func (in LocalInvokeInput) LocalInvokeArgs() ([]string, error) {
	if in.FunctionID == "" {
		return nil, fmt.Errorf("function logical id is required")
	}
	args := []string{"local", "invoke", in.FunctionID}
	if in.EventFile != "" {
		args = append(args, "--event", in.EventFile)
	} else {
		args = append(args, "--no-event")
	}
	if in.EnvVarsFile != "" {
		args = append(args, "--env-vars", in.EnvVarsFile)
	}
	return args, nil
}

// DeleteInput describes a sam delete invocation.
type DeleteInput struct {
	StackName string
	Region    string
}

// DeleteArgs builds the sam delete argument list.
func (in DeleteInput) DeleteArgs() ([]string, error) {
	if in.StackName == "" {
		return nil, fmt.Errorf("stack name is required")
	}
	args := []string{"delete", "--stack-name", in.StackName, "--no-prompts"}
	if in.Region != "" {
		args = append(args, "--region", in.Region)
	}
	return args, nil
}

package sam

import (
	"context"
	"fmt"
	"strings"

	"serverless-mcp/internal/samcli"
	"serverless-mcp/internal/template"
	"serverless-mcp/internal/tools"
)

func initTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "sam_init",
		Description: "Scaffold a new AWS SAM application in a directory",
		Category:    tools.CategorySAM,
		Schema: tools.Schema{
			Required: []string{"project_name", "runtime", "directory"},
			Properties: map[string]tools.Property{
				"project_name": {Type: "string", Description: "Name of the new project; becomes the subdirectory name"},
				"runtime":      {Type: "string", Description: "Lambda runtime, e.g. python3.13, nodejs22.x, java21"},
				"directory":    {Type: "string", Description: "Directory the project is created under"},
				"dependency_manager": {
					Type:        "string",
					Description: "Dependency manager matching the runtime (pip, npm, maven, gradle, mod)",
				},
				"architecture": {
					Type:        "string",
					Description: "CPU architecture",
					Enum:        []any{"x86_64", "arm64"},
					Default:     "arm64",
				},
				"template_name": {
					Type:        "string",
					Description: "Quick-start template (default hello-world)",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			name, err := tools.RequiredString(args, "project_name")
			if err != nil {
				return "", err
			}
			runtime, err := tools.RequiredString(args, "runtime")
			if err != nil {
				return "", err
			}
			dir, err := tools.RequiredString(args, "directory")
			if err != nil {
				return "", err
			}

			out, err := d.CLI.Init(ctx, dir, samcli.InitInput{
				Name:              name,
				Runtime:           runtime,
				DependencyManager: tools.String(args, "dependency_manager", ""),
				Architecture:      tools.String(args, "architecture", "arm64"),
				TemplateName:      tools.String(args, "template_name", ""),
			})
			if err != nil {
				return "", samErr("sam init", out, err)
			}
			return fmt.Sprintf("Project %s created under %s.\n\n%s", name, dir, out), nil
		},
	}
}

func buildTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "sam_build",
		Description: "Build a SAM application, resolving dependencies per function",
		Category:    tools.CategorySAM,
		Schema: tools.Schema{
			Required: []string{"project_dir"},
			Properties: map[string]tools.Property{
				"project_dir":   {Type: "string", Description: "Directory containing template.yaml"},
				"use_container": {Type: "boolean", Description: "Build inside a Lambda-like container (needs Docker)", Default: false},
				"parallel":      {Type: "boolean", Description: "Build functions in parallel", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := tools.RequiredString(args, "project_dir")
			if err != nil {
				return "", err
			}
			useContainer := tools.Bool(args, "use_container", false)
			if useContainer && d.RequireDocker {
				if err := d.CLI.DockerAvailable(ctx); err != nil {
					return "", err
				}
			}

			out, err := d.CLI.Build(ctx, dir, samcli.BuildInput{
				UseContainer: useContainer,
				Parallel:     tools.Bool(args, "parallel", false),
			})
			if err != nil {
				return "", samErr("sam build", out, err)
			}
			return out, nil
		},
	}
}

func localInvokeTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "sam_local_invoke",
		Description: "Invoke a function locally in a Lambda-like container with an optional test event",
		Category:    tools.CategorySAM,
		Sensitive:   true,
		Schema: tools.Schema{
			Required: []string{"project_dir", "function_id"},
			Properties: map[string]tools.Property{
				"project_dir": {Type: "string", Description: "Directory containing the built application"},
				"function_id": {Type: "string", Description: "Logical id of the function in the template"},
				"event":       {Type: "string", Description: "JSON event payload passed to the function"},
				"event_file":  {Type: "string", Description: "Path to a JSON event file (ignored when event is set)"},
				"env_vars":    {Type: "object", Description: "Environment variable overrides for the function"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := tools.RequiredString(args, "project_dir")
			if err != nil {
				return "", err
			}
			fnID, err := tools.RequiredString(args, "function_id")
			if err != nil {
				return "", err
			}
			if d.RequireDocker {
				if err := d.CLI.DockerAvailable(ctx); err != nil {
					return "", err
				}
			}

			in := samcli.LocalInvokeInput{FunctionID: fnID}

			if event := tools.String(args, "event", ""); event != "" {
				path, cleanup, err := writeTempJSON("event-*.json", []byte(event))
				if err != nil {
					return "", err
				}
				defer cleanup()
				in.EventFile = path
			} else if file := tools.String(args, "event_file", ""); file != "" {
				in.EventFile = file
			}

			if env := tools.StringMap(args, "env_vars"); len(env) > 0 {
				path, cleanup, err := writeEnvVarsFile(fnID, env)
				if err != nil {
					return "", err
				}
				defer cleanup()
				in.EnvVarsFile = path
			}

			out, err := d.CLI.LocalInvoke(ctx, dir, in)
			if err != nil {
				return "", samErr("sam local invoke", out, err)
			}
			return out, nil
		},
	}
}

// validateProject checks the project has a parseable template before an
// expensive CLI call, and returns it for further inspection.
func validateProject(projectDir string) (*template.Template, error) {
	path, err := template.Find(projectDir)
	if err != nil {
		return nil, err
	}
	return template.Parse(path)
}

// samErr folds captured CLI output and a recognized-failure hint into one
// error message for the agent.
func samErr(op, output string, err error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: %v", op, err)
	var cmdErr *samcli.CommandError
	if ok := asCommandError(err, &cmdErr); ok {
		if hint := cmdErr.Hint(); hint != "" {
			fmt.Fprintf(&b, "\nhint: %s", hint)
		}
	}
	if output != "" {
		fmt.Fprintf(&b, "\n\n%s", output)
	}
	return fmt.Errorf("%s", b.String())
}

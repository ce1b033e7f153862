package sam

import "serverless-mcp/internal/tools"

// Register adds the SAM lifecycle tools to the registry.
func Register(reg *tools.Registry, d Deps) error {
	for _, t := range []*tools.Tool{
		initTool(d),
		buildTool(d),
		deployTool(d),
		localInvokeTool(d),
		logsTool(d),
		deleteTool(d),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

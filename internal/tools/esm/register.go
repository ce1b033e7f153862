package esm

import "serverless-mcp/internal/tools"

// Register adds the esm tools to the registry.
func Register(reg *tools.Registry, d Deps) error {
	for _, t := range []*tools.Tool{
		guidanceTool(d),
		optimizeTool(d),
		kafkaTroubleshootTool(d),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

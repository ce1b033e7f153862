package webapp

import "serverless-mcp/internal/tools"

// Register adds the webapp tools to the registry.
func Register(reg *tools.Registry, d Deps) error {
	for _, t := range []*tools.Tool{
		deployTool(d),
		updateFrontendTool(d),
		configureDomainTool(d),
		helpTool(d),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

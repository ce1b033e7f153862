package guidance

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// descriptions shown in resources/list.
var descriptions = map[string]string{
	"project-setup":         "Scaffolding and deploying a new SAM application",
	"troubleshooting":       "Common SAM deployment failures and fixes",
	"webapp-deployment":     "Deploying web applications to S3, CloudFront and Lambda",
	"event-source-mappings": "Tuning and troubleshooting Lambda event source mappings",
	"optimization":          "Lambda performance and cost tuning",
	"lambda-guidance":       "When Lambda is and is not the right compute",
}

// AddResources registers every document as an MCP resource.
func (l *Library) AddResources(s *server.MCPServer) {
	for _, name := range l.Names() {
		uri := URIScheme + name
		res := mcp.NewResource(uri, name,
			mcp.WithResourceDescription(descriptions[name]),
			mcp.WithMIMEType("text/markdown"),
		)
		docName := name
		s.AddResource(res, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			doc, _ := l.Get(docName)
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc,
				},
			}, nil
		})
	}
}

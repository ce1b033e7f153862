package webapp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// backendTemplate is the SAM template generated for backend deployments.
// The function runs the application server behind the Lambda Web Adapter
// layer, so any framework listening on PORT works unchanged.
const backendTemplate = `AWSTemplateFormatVersion: '2010-09-09'
Transform: AWS::Serverless-2016-10-31
Description: {{ .Project }} web application backend

Resources:
  {{ .LogicalID }}:
    Type: AWS::Serverless::Function
    Properties:
      FunctionName: {{ .Project }}-backend
      CodeUri: {{ .ArtifactsPath }}
      Handler: run.sh
      Runtime: {{ .Runtime }}
      MemorySize: 512
      Timeout: 30
      Layers:
        - !Sub arn:aws:lambda:${AWS::Region}:753240598075:layer:LambdaAdapterLayerX86:25
      Environment:
        Variables:
          AWS_LAMBDA_EXEC_WRAPPER: /opt/bootstrap
          PORT: '{{ .Port }}'
          AWS_LWA_INVOKE_MODE: buffered
      Events:
        Root:
          Type: HttpApi
          Properties:
            Path: /
            Method: ANY
        Proxy:
          Type: HttpApi
          Properties:
            Path: /{proxy+}
            Method: ANY

Outputs:
  ApiUrl:
    Description: HTTP API endpoint
    Value: !Sub https://${ServerlessHttpApi}.execute-api.${AWS::Region}.amazonaws.com/
`

type backendParams struct {
	Project       string
	LogicalID     string
	ArtifactsPath string
	Runtime       string
	Port          int
}

// writeBackendTemplate renders the backend template into dir and returns
// its path. An existing template.yaml is left alone so hand edits survive
// redeploys.
func writeBackendTemplate(dir string, p backendParams) (string, error) {
	path := filepath.Join(dir, "template.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if p.LogicalID == "" {
		p.LogicalID = logicalID(p.Project) + "Function"
	}
	if p.Port == 0 {
		p.Port = 8080
	}

	tpl := template.Must(template.New("backend").Parse(backendTemplate))
	var b strings.Builder
	if err := tpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("render backend template: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// logicalID turns a project name into a CloudFormation-safe logical id.
func logicalID(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			if upper {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
			upper = false
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			upper = false
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "App"
	}
	return b.String()
}

// Package samconfig reads and writes samconfig.toml, the SAM CLI's own
// per-project configuration file. The deploy tool persists its parameters
// here so later deploys can omit them, matching `sam deploy --guided`
// behavior without the interactive prompt.
package samconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the name the SAM CLI looks for.
const FileName = "samconfig.toml"

// DefaultEnv is the environment the SAM CLI uses when --config-env is not
// given.
const DefaultEnv = "default"

// DeployParams mirrors [<env>.deploy.parameters].
type DeployParams struct {
	StackName          string `toml:"stack_name,omitempty"`
	Region             string `toml:"region,omitempty"`
	S3Bucket           string `toml:"s3_bucket,omitempty"`
	ResolveS3          bool   `toml:"resolve_s3,omitempty"`
	Capabilities       string `toml:"capabilities,omitempty"`
	ConfirmChangeset   bool   `toml:"confirm_changeset"`
	ParameterOverrides string `toml:"parameter_overrides,omitempty"`
}

// File is a decoded samconfig.toml. Environments other than the ones we
// touch round-trip untouched through Raw.
type File struct {
	Version float64
	Raw     map[string]any
}

// Load reads the samconfig.toml inside projectDir. A missing file yields
// an empty File, not an error; first deploys create it.
func Load(projectDir string) (*File, error) {
	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{Version: 0.1, Raw: map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	f := &File{Version: 0.1, Raw: raw}
	if v, ok := raw["version"].(float64); ok {
		f.Version = v
	}
	return f, nil
}

// DeployParams returns the deploy parameters for env, or a zero value if
// none are recorded.
func (f *File) DeployParams(env string) DeployParams {
	var p DeployParams
	params, ok := f.section(env, "deploy")
	if !ok {
		return p
	}
	if s, ok := params["stack_name"].(string); ok {
		p.StackName = s
	}
	if s, ok := params["region"].(string); ok {
		p.Region = s
	}
	if s, ok := params["s3_bucket"].(string); ok {
		p.S3Bucket = s
	}
	if b, ok := params["resolve_s3"].(bool); ok {
		p.ResolveS3 = b
	}
	if s, ok := params["capabilities"].(string); ok {
		p.Capabilities = s
	}
	if b, ok := params["confirm_changeset"].(bool); ok {
		p.ConfirmChangeset = b
	}
	if s, ok := params["parameter_overrides"].(string); ok {
		p.ParameterOverrides = s
	}
	return p
}

// SetDeployParams records deploy parameters for env.
func (f *File) SetDeployParams(env string, p DeployParams) {
	params := map[string]any{"confirm_changeset": p.ConfirmChangeset}
	if p.StackName != "" {
		params["stack_name"] = p.StackName
	}
	if p.Region != "" {
		params["region"] = p.Region
	}
	if p.S3Bucket != "" {
		params["s3_bucket"] = p.S3Bucket
	}
	if p.ResolveS3 {
		params["resolve_s3"] = true
	}
	if p.Capabilities != "" {
		params["capabilities"] = p.Capabilities
	}
	if p.ParameterOverrides != "" {
		params["parameter_overrides"] = p.ParameterOverrides
	}

	envMap, ok := f.Raw[env].(map[string]any)
	if !ok {
		envMap = map[string]any{}
		f.Raw[env] = envMap
	}
	deployMap, ok := envMap["deploy"].(map[string]any)
	if !ok {
		deployMap = map[string]any{}
		envMap["deploy"] = deployMap
	}
	deployMap["parameters"] = params
}

// Save writes the file back into projectDir.
func (f *File) Save(projectDir string) error {
	f.Raw["version"] = f.Version
	data, err := toml.Marshal(f.Raw)
	if err != nil {
		return fmt.Errorf("encode samconfig: %w", err)
	}
	path := filepath.Join(projectDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (f *File) section(env, command string) (map[string]any, bool) {
	envMap, ok := f.Raw[env].(map[string]any)
	if !ok {
		return nil, false
	}
	cmdMap, ok := envMap[command].(map[string]any)
	if !ok {
		return nil, false
	}
	params, ok := cmdMap["parameters"].(map[string]any)
	return params, ok
}

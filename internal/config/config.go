// Package config holds the server configuration. Values resolve in order:
// built-in defaults, then the YAML config file, then environment variables,
// then command-line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the serverless MCP server.
type Config struct {
	AWS         AWSConfig         `yaml:"aws"`
	Server      ServerConfig      `yaml:"server"`
	Permissions PermissionsConfig `yaml:"permissions"`
	SAM         SAMConfig         `yaml:"sam"`
	Logging     LoggingConfig     `yaml:"logging"`
	Guidance    GuidanceConfig    `yaml:"guidance"`
	State       StateConfig       `yaml:"state"`
}

// AWSConfig selects the credentials and region used for every AWS call.
type AWSConfig struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
	// EndpointURL overrides every service endpoint. Used for local stacks
	// in tests; empty in normal operation.
	EndpointURL string `yaml:"endpoint_url"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio or http
	Port      int    `yaml:"port"`
}

// PermissionsConfig gates the mutating and data-revealing tool surface.
type PermissionsConfig struct {
	AllowWrite               bool `yaml:"allow_write"`
	AllowSensitiveDataAccess bool `yaml:"allow_sensitive_data_access"`
}

// SAMConfig configures how the external SAM CLI is invoked.
type SAMConfig struct {
	// Binary is the sam executable; resolved via PATH when not absolute.
	Binary string `yaml:"binary"`
	// BuildTimeout and DeployTimeout bound the slowest SAM operations.
	BuildTimeout  time.Duration `yaml:"build_timeout"`
	DeployTimeout time.Duration `yaml:"deploy_timeout"`
	// RequireDocker makes local invocation fail fast with a clear error
	// when the docker daemon is unreachable.
	RequireDocker bool `yaml:"require_docker"`
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	Dir    string `yaml:"dir"`
	Level  string `yaml:"level"`
	Stderr bool   `yaml:"stderr"`
}

// GuidanceConfig points at an optional directory whose Markdown files
// override the embedded guidance documents.
type GuidanceConfig struct {
	OverrideDir string `yaml:"override_dir"`
}

// StateConfig locates the deployment history database.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".serverless-mcp")
	return &Config{
		Server: ServerConfig{Transport: "stdio", Port: 8780},
		SAM: SAMConfig{
			Binary:        "sam",
			BuildTimeout:  10 * time.Minute,
			DeployTimeout: 30 * time.Minute,
			RequireDocker: true,
		},
		Logging: LoggingConfig{
			Dir:    filepath.Join(stateDir, "logs"),
			Level:  "info",
			Stderr: false,
		},
		State: StateConfig{Dir: stateDir},
	}
}

// Load reads path (when non-empty) over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv maps the environment onto the config. AWS_PROFILE and AWS_REGION
// follow the AWS CLI convention; everything else is namespaced under
// SERVERLESS_MCP_.
func (c *Config) applyEnv() {
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		c.AWS.Profile = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("SERVERLESS_MCP_ENDPOINT_URL"); v != "" {
		c.AWS.EndpointURL = v
	}
	if v := os.Getenv("SERVERLESS_MCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("SERVERLESS_MCP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SERVERLESS_MCP_ALLOW_WRITE"); v != "" {
		c.Permissions.AllowWrite = isTruthy(v)
	}
	if v := os.Getenv("SERVERLESS_MCP_ALLOW_SENSITIVE_DATA_ACCESS"); v != "" {
		c.Permissions.AllowSensitiveDataAccess = isTruthy(v)
	}
	if v := os.Getenv("SERVERLESS_MCP_LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("SERVERLESS_MCP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SERVERLESS_MCP_SAM_BINARY"); v != "" {
		c.SAM.Binary = v
	}
	if v := os.Getenv("SERVERLESS_MCP_GUIDANCE_DIR"); v != "" {
		c.Guidance.OverrideDir = v
	}
	if v := os.Getenv("SERVERLESS_MCP_STATE_DIR"); v != "" {
		c.State.Dir = v
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q (expected stdio or http)", c.Server.Transport)
	}
	if c.Server.Transport == "http" && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.SAM.Binary == "" {
		return fmt.Errorf("sam.binary must not be empty")
	}
	if c.SAM.BuildTimeout <= 0 || c.SAM.DeployTimeout <= 0 {
		return fmt.Errorf("sam timeouts must be positive")
	}
	return nil
}

func isTruthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

package samcli

import (
	"context"
	"fmt"
	"time"
)

// CLI exposes the SAM operations the tools need. It owns no AWS state;
// credentials travel as environment variables into the subprocess.
type CLI struct {
	runner        Runner
	binary        string
	buildTimeout  time.Duration
	deployTimeout time.Duration

	// profile and region are injected into every subprocess so the SAM
	// CLI resolves the same credentials as the server's own AWS clients.
	profile string
	region  string
}

// Config carries CLI construction parameters.
type Config struct {
	Binary        string
	BuildTimeout  time.Duration
	DeployTimeout time.Duration
	Profile       string
	Region        string
}

// New builds a CLI backed by the real ExecRunner.
func New(cfg Config) *CLI {
	return NewWithRunner(cfg, ExecRunner{})
}

// NewWithRunner builds a CLI with a caller-provided runner. Tests use this
// to avoid spawning processes.
func NewWithRunner(cfg Config, r Runner) *CLI {
	binary := cfg.Binary
	if binary == "" {
		binary = "sam"
	}
	buildTimeout := cfg.BuildTimeout
	if buildTimeout <= 0 {
		buildTimeout = 10 * time.Minute
	}
	deployTimeout := cfg.DeployTimeout
	if deployTimeout <= 0 {
		deployTimeout = 30 * time.Minute
	}
	return &CLI{
		runner:        r,
		binary:        binary,
		buildTimeout:  buildTimeout,
		deployTimeout: deployTimeout,
		profile:       cfg.Profile,
		region:        cfg.Region,
	}
}

func (c *CLI) env() []string {
	var env []string
	if c.profile != "" {
		env = append(env, "AWS_PROFILE="+c.profile)
	}
	if c.region != "" {
		env = append(env, "AWS_REGION="+c.region)
	}
	return env
}

func (c *CLI) run(ctx context.Context, dir string, timeout time.Duration, args []string) (string, error) {
	return c.runner.Run(ctx, Command{
		Binary:  c.binary,
		Args:    args,
		Dir:     dir,
		Env:     c.env(),
		Timeout: timeout,
	})
}

// Init scaffolds a new SAM application under dir.
func (c *CLI) Init(ctx context.Context, dir string, in InitInput) (string, error) {
	args, err := in.InitArgs()
	if err != nil {
		return "", err
	}
	return c.run(ctx, dir, c.buildTimeout, args)
}

// Build compiles the application in projectDir.
func (c *CLI) Build(ctx context.Context, projectDir string, in BuildInput) (string, error) {
	return c.run(ctx, projectDir, c.buildTimeout, in.BuildArgs())
}

// Deploy deploys the built application in projectDir.
func (c *CLI) Deploy(ctx context.Context, projectDir string, in DeployInput) (string, error) {
	args, err := in.DeployArgs()
	if err != nil {
		return "", err
	}
	return c.run(ctx, projectDir, c.deployTimeout, args)
}

// LocalInvoke invokes a single function locally inside a Lambda-like
// container.
func (c *CLI) LocalInvoke(ctx context.Context, projectDir string, in LocalInvokeInput) (string, error) {
	args, err := in.LocalInvokeArgs()
	if err != nil {
		return "", err
	}
	return c.run(ctx, projectDir, c.buildTimeout, args)
}

// Delete removes a deployed stack.
func (c *CLI) Delete(ctx context.Context, projectDir string, in DeleteInput) (string, error) {
	args, err := in.DeleteArgs()
	if err != nil {
		return "", err
	}
	return c.run(ctx, projectDir, c.deployTimeout, args)
}

// Available checks that the sam binary responds.
func (c *CLI) Available(ctx context.Context) error {
	if _, err := c.run(ctx, "", 30*time.Second, []string{"--version"}); err != nil {
		return err
	}
	return nil
}

// DockerAvailable checks the docker daemon, which sam needs for container
// builds and local invocation.
func (c *CLI) DockerAvailable(ctx context.Context) error {
	_, err := c.runner.Run(ctx, Command{
		Binary:  "docker",
		Args:    []string{"info", "--format", "{{.ServerVersion}}"},
		Timeout: 15 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDockerNotRunning, err)
	}
	return nil
}

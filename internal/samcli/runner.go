// Package samcli wraps the external AWS SAM CLI. Nothing in here talks to
// AWS directly; it builds argument lists, executes the sam binary with a
// bounded context, and classifies failures.
package samcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"serverless-mcp/internal/logging"
)

// maxOutput caps captured CLI output so a chatty build cannot flood the
// MCP response.
const maxOutput = 64 * 1024

// allowedBinaries is the full set of executables this package may spawn.
var allowedBinaries = map[string]bool{
	"sam":    true,
	"docker": true,
}

// Command describes one external invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Env     []string // KEY=VALUE pairs appended to the inherited environment
	Timeout time.Duration
}

// Runner executes commands. Tests substitute a stub; production code uses
// ExecRunner.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes cmd and returns combined, truncated output. The binary must
// be on the allow list; everything else is refused before it spawns.
func (ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	if base := binaryBase(cmd.Binary); !allowedBinaries[base] {
		return "", fmt.Errorf("binary %q is not permitted", cmd.Binary)
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	log := logging.For(logging.CategorySAM)
	log.Info("exec", zap.String("binary", cmd.Binary), zap.Strings("args", cmd.Args), zap.String("dir", cmd.Dir))

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	output := combineOutput(stdout.String(), stderr.String())

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return output, fmt.Errorf("%s timed out after %s", cmd.Binary, cmd.Timeout)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			if binaryBase(cmd.Binary) == "sam" {
				return output, ErrSAMNotFound
			}
			return output, fmt.Errorf("%s not found on PATH", cmd.Binary)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Warn("exec failed",
				zap.String("binary", cmd.Binary),
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.Duration("elapsed", time.Since(start)))
			return output, &CommandError{
				Binary:   cmd.Binary,
				Args:     cmd.Args,
				ExitCode: exitErr.ExitCode(),
				Output:   output,
			}
		}
		return output, fmt.Errorf("run %s: %w", cmd.Binary, err)
	}

	log.Info("exec ok", zap.String("binary", cmd.Binary), zap.Duration("elapsed", time.Since(start)))
	return output, nil
}

func combineOutput(stdout, stderr string) string {
	out := stdout
	if stderr != "" {
		if out != "" {
			out += "\n--- stderr ---\n"
		}
		out += stderr
	}
	if len(out) > maxOutput {
		out = out[:maxOutput] + "\n...[truncated]"
	}
	return out
}

func binaryBase(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	return base
}

package samcli

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSAMNotFound reports a missing sam executable.
var ErrSAMNotFound = errors.New("AWS SAM CLI not found: install it from https://docs.aws.amazon.com/serverless-application-model/latest/developerguide/install-sam-cli.html")

// ErrDockerNotRunning reports an unreachable docker daemon, which sam
// requires for container builds and local invocation.
var ErrDockerNotRunning = errors.New("docker daemon is not running: start Docker before using container builds or local invocation")

// CommandError carries the exit code and captured output of a failed
// invocation.
type CommandError struct {
	Binary   string
	Args     []string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s exited with code %d", e.Binary, strings.Join(e.Args, " "), e.ExitCode)
}

// Hint inspects the captured output for failure signatures the SAM CLI is
// known to emit and returns operator advice, or "" when nothing matches.
func (e *CommandError) Hint() string {
	out := strings.ToLower(e.Output)
	switch {
	case strings.Contains(out, "docker") && (strings.Contains(out, "not running") || strings.Contains(out, "cannot connect")):
		return ErrDockerNotRunning.Error()
	case strings.Contains(out, "unable to locate credentials") || strings.Contains(out, "token has expired"):
		return "AWS credentials are missing or expired: run `aws configure` or refresh your session"
	case strings.Contains(out, "s3 bucket"):
		return "no deployment bucket available: pass resolve_s3=true or configure one in samconfig.toml"
	case strings.Contains(out, "rollback"):
		return "the CloudFormation stack rolled back: inspect the stack events in the output above"
	}
	return ""
}

package sam

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"serverless-mcp/internal/samcli"
)

func asCommandError(err error, target **samcli.CommandError) bool {
	return errors.As(err, target)
}

// writeTempJSON writes data to a temp file and returns its path and a
// cleanup function.
func writeTempJSON(pattern string, data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// writeEnvVarsFile writes the --env-vars file format the SAM CLI expects:
// a JSON object keyed by function logical id.
func writeEnvVarsFile(functionID string, env map[string]string) (string, func(), error) {
	data, err := json.Marshal(map[string]map[string]string{functionID: env})
	if err != nil {
		return "", nil, fmt.Errorf("encode env vars: %w", err)
	}
	return writeTempJSON("env-vars-*.json", data)
}

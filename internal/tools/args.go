package tools

import (
	"fmt"
	"time"
)

// Argument extraction helpers. MCP arguments arrive as map[string]any with
// JSON types, so numbers are float64 and arrays are []any.

// RequiredString returns args[key] or an error naming the parameter.
func RequiredString(args map[string]any, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q is required", key)
	}
	return s, nil
}

// String returns args[key] or fallback.
func String(args map[string]any, key, fallback string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Bool returns args[key] or fallback.
func Bool(args map[string]any, key string, fallback bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return fallback
}

// Int returns args[key] or fallback, accepting the float64 JSON decoding.
func Int(args map[string]any, key string, fallback int) int {
	switch n := args[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}

// StringSlice returns args[key] as []string, skipping non-string elements.
func StringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringMap returns args[key] as map[string]string, skipping non-string
// values.
func StringMap(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Time parses args[key] as RFC 3339, returning fallback when absent and an
// error when present but malformed.
func Time(args map[string]any, key string, fallback time.Time) (time.Time, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return fallback, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parameter %q: expected RFC 3339 timestamp: %w", key, err)
	}
	return ts, nil
}

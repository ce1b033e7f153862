// Package logging provides categorized logging for the serverless MCP server.
// In stdio transport mode stdout carries JSON-RPC frames, so every log line
// goes to a file under the log directory and optionally to stderr, never to
// stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryBoot     Category = "boot"     // startup, config resolution
	CategoryServer   Category = "server"   // MCP session lifecycle
	CategoryTools    Category = "tools"    // tool registration and dispatch
	CategorySAM      Category = "sam"      // SAM CLI invocations
	CategoryAWS      Category = "aws"      // AWS API calls
	CategoryWebapp   Category = "webapp"   // web application deployments
	CategoryESM      Category = "esm"      // event source mapping operations
	CategoryMetrics  Category = "metrics"  // CloudWatch metric queries
	CategoryStore    Category = "store"    // deployment history store
	CategoryGuidance Category = "guidance" // guidance document loading
)

// Options controls where and how much the process logs.
type Options struct {
	// Dir is the directory for the per-run log file. Empty disables file
	// output.
	Dir string
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Stderr mirrors log output to stderr using a console encoder.
	Stderr bool
}

var (
	mu   sync.RWMutex
	root *zap.Logger = zap.NewNop()
)

// Init builds the process logger. It is safe to call more than once; the
// last call wins. The file sink is named serverless-mcp-<date>.log so
// consecutive runs on the same day append to one file.
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cores []zapcore.Core

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("serverless-mcp-%s.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "ts"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level))
	}

	if opts.Stderr {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stderr), level))
	}

	logger := zap.NewNop()
	if len(cores) > 0 {
		logger = zap.New(zapcore.NewTee(cores...))
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// For returns a logger tagged with the given category.
func For(cat Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With(zap.String("category", string(cat)))
}

// Sync flushes buffered log entries. Errors from syncing stderr are
// ignored; they are expected on some platforms.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

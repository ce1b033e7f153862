// Package server assembles the MCP server: registered tools filtered by
// the permission gates, guidance resources, and the stdio or streamable
// HTTP transport.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"serverless-mcp/internal/guidance"
	"serverless-mcp/internal/logging"
	"serverless-mcp/internal/tools"
)

const serverName = "AWS Serverless MCP Server"

// shutdownTimeout bounds the drain of in-flight HTTP sessions.
const shutdownTimeout = 10 * time.Second

// TransportStdio serves a single session over stdin/stdout;
// TransportHTTP serves concurrent sessions over streamable HTTP.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Options configures Build.
type Options struct {
	Version   string
	Transport string
	Port      int
	Gates     tools.Gates
	Registry  *tools.Registry
	Guide     *guidance.Library
}

// Server wraps the MCP server with its chosen transport.
type Server struct {
	mcp       *server.MCPServer
	transport string
	addr      string
	exposed   int
}

// Build wires the registry and guidance library into an MCP server.
// Tools the gates do not permit are left unregistered, so a connected
// agent never sees capabilities it cannot use.
func Build(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("server: registry is required")
	}

	s := server.NewMCPServer(
		serverName,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithRecovery(),
	)

	if err := tools.AddAll(s, opts.Registry, opts.Gates); err != nil {
		return nil, err
	}
	if opts.Guide != nil {
		opts.Guide.AddResources(s)
	}

	exposed := len(opts.Registry.Permitted(opts.Gates))
	log := logging.For(logging.CategoryServer)
	log.Info("server assembled",
		zap.Int("tools_registered", opts.Registry.Count()),
		zap.Int("tools_exposed", exposed),
		zap.Bool("allow_write", opts.Gates.AllowWrite),
		zap.Bool("allow_sensitive", opts.Gates.AllowSensitive),
	)

	transport := opts.Transport
	if transport == "" {
		transport = TransportStdio
	}
	switch transport {
	case TransportStdio, TransportHTTP:
	default:
		return nil, fmt.Errorf("server: unknown transport %q", transport)
	}

	return &Server{
		mcp:       s,
		transport: transport,
		addr:      fmt.Sprintf(":%d", opts.Port),
		exposed:   exposed,
	}, nil
}

// ExposedTools reports how many tools the connected agent will see.
func (s *Server) ExposedTools() int { return s.exposed }

// Run serves until the context is canceled or the transport fails.
// Stdio blocks on stdin; nothing may write to stdout but the protocol.
func (s *Server) Run(ctx context.Context) error {
	log := logging.For(logging.CategoryServer)

	switch s.transport {
	case TransportStdio:
		log.Info("serving over stdio")
		return server.ServeStdio(s.mcp)
	case TransportHTTP:
		httpServer := server.NewStreamableHTTPServer(s.mcp)

		errCh := make(chan error, 1)
		go func() {
			log.Info("serving over streamable http", zap.String("addr", s.addr))
			errCh <- httpServer.Start(s.addr)
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	}
	return fmt.Errorf("server: unknown transport %q", s.transport)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// Endpoint paths served by the network transports.
const (
	sseEndpoint            = "/sse"
	messageEndpoint        = "/message"
	streamableHTTPEndpoint = "/mcp"
)

// TransportStarter runs the MCP server over one wire protocol.
//
// Implementations:
//   - StdioTransport: stdin/stdout, for clients that spawn the server
//   - SSETransport: HTTP with server-sent events
//   - StreamableHTTPTransport: HTTP POST with optional streaming, path-addressable
type TransportStarter interface {
	// Start serves mcpServer and blocks until the transport stops.
	// A transport stopped through Shutdown returns nil.
	Start(ctx context.Context, mcpServer *server.MCPServer) error

	// Shutdown stops accepting clients and closes open sessions.
	// It is safe to call before Start.
	Shutdown(ctx context.Context) error

	// Type names the transport: "stdio", "sse" or "streamablehttp".
	Type() string
}

// inbound is the host and path of the HTTP request that carried a tool call.
type inbound struct {
	Host string
	Path string
}

type inboundKey struct{}

// withInbound records the request host and its path, minus any trailing
// transport endpoint, so "/octo/widget/mcp" becomes "/octo/widget".
func withInbound(ctx context.Context, r *http.Request) context.Context {
	path := r.URL.Path
	for _, endpoint := range []string{sseEndpoint, messageEndpoint, streamableHTTPEndpoint} {
		if trimmed, ok := strings.CutSuffix(path, endpoint); ok {
			path = trimmed
			break
		}
	}
	return context.WithValue(ctx, inboundKey{}, inbound{Host: r.Host, Path: path})
}

func inboundFrom(ctx context.Context) (inbound, bool) {
	in, ok := ctx.Value(inboundKey{}).(inbound)
	return in, ok
}

// StdioTransport speaks MCP over stdin and stdout. Logs must go to stderr.
// Tool calls carry no inbound request, so they rely on the url argument or
// the bound repository.
type StdioTransport struct{}

// Start serves until stdin closes.
func (s *StdioTransport) Start(ctx context.Context, mcpServer *server.MCPServer) error {
	return server.ServeStdio(mcpServer)
}

// Shutdown is a no-op; the process owns stdin and stdout.
func (s *StdioTransport) Shutdown(ctx context.Context) error {
	return nil
}

// Type returns "stdio".
func (s *StdioTransport) Type() string {
	return "stdio"
}

// SSETransport serves the SSE stream at /sse and client messages at /message.
// The inbound host of each call is recorded, so a pages host such as
// "docs.gitmcp.io" selects its documentation without a url argument.
type SSETransport struct {
	address string
	server  *server.SSEServer
}

// Start listens on the configured address and blocks until shutdown.
func (s *SSETransport) Start(ctx context.Context, mcpServer *server.MCPServer) error {
	s.server = server.NewSSEServer(mcpServer,
		server.WithSSEEndpoint(sseEndpoint),
		server.WithMessageEndpoint(messageEndpoint),
		server.WithSSEContextFunc(withInbound),
	)

	if err := s.server.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes the SSE sessions and the listener.
func (s *SSETransport) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Type returns "sse".
func (s *SSETransport) Type() string {
	return "sse"
}

// StreamableHTTPTransport serves the streamable HTTP handler under every path,
// so a client pointed at "/{owner}/{repo}/mcp" selects that repository.
type StreamableHTTPTransport struct {
	address    string
	logger     *slog.Logger
	httpServer *http.Server
}

// Start listens on the configured address and blocks until shutdown.
func (s *StreamableHTTPTransport) Start(ctx context.Context, mcpServer *server.MCPServer) error {
	handler := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath(streamableHTTPEndpoint),
		server.WithHTTPContextFunc(withInbound),
	)

	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Debug("StreamableHTTP listening", "address", s.address, "endpoint", streamableHTTPEndpoint)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *StreamableHTTPTransport) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Type returns "streamablehttp".
func (s *StreamableHTTPTransport) Type() string {
	return "streamablehttp"
}

// transportConfig is the part of the configuration NewTransport reads.
type transportConfig interface {
	GetTransportType() string
	GetPort() int
	GetTransportAddress() string
}

// NewTransport builds the transport named by cfg. Network transports need a
// port. A nil logger falls back to slog.Default().
func NewTransport(cfg transportConfig, logger *slog.Logger) (TransportStarter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	transportType := cfg.GetTransportType()
	switch transportType {
	case "stdio":
		return &StdioTransport{}, nil
	case "sse", "streamablehttp":
		if cfg.GetPort() == 0 {
			return nil, fmt.Errorf("port must be configured for %s transport", transportType)
		}
	default:
		return nil, fmt.Errorf("unsupported transport type: %s (must be one of: stdio, sse, streamablehttp)", transportType)
	}

	if transportType == "sse" {
		return &SSETransport{address: cfg.GetTransportAddress()}, nil
	}
	return &StreamableHTTPTransport{address: cfg.GetTransportAddress(), logger: logger}, nil
}

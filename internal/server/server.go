// Package server provides the MCP server core implementation, handling protocol
// communication, tool registration, and request routing.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/config"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/identity"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/resolver"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "repo-docs-mcp-server"
	serverVersion = "1.0.0"

	defaultFetchTool  = "fetch_documentation"
	defaultSearchTool = "search_documentation"
)

// ErrNoLocation is returned when a tool call names no repository and the server
// is not bound to one.
var ErrNoLocation = errors.New("no repository given: pass url or bind the server to a repository")

// DocumentResolver resolves a location to its documentation.
type DocumentResolver interface {
	Resolve(ctx context.Context, loc identity.Location) resolver.Result
}

// DocumentSearcher answers search queries against a location's documentation.
type DocumentSearcher interface {
	Search(ctx context.Context, req search.Request) search.Response
}

// Dependencies are the collaborators the tool handlers call.
type Dependencies struct {
	Resolver DocumentResolver
	Searcher DocumentSearcher
}

// Server represents the MCP server instance with all its dependencies.
// It coordinates the MCP protocol handling, location parsing, and tool execution.
type Server struct {
	config     *config.Config
	parser     *identity.Parser
	resolver   DocumentResolver
	searcher   DocumentSearcher
	bound      *identity.Location // Repository the tools are bound to, if any
	logger     *slog.Logger
	mcpServer  *server.MCPServer
	transport  TransportStarter
	registered bool
}

// NewServer creates a new MCP server instance with the provided configuration,
// dependencies and logger. The server is not started until Start() is called.
//
// Parameters:
//   - cfg: Configuration for the server
//   - deps: Resolver and searcher used by the tool handlers
//   - logger: Structured logger for logging
//
// Returns a configured Server instance ready to have its tools registered.
// Returns an error if the host layout, the bound repository URL or the
// transport configuration is invalid.
func NewServer(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if deps.Resolver == nil || deps.Searcher == nil {
		return nil, fmt.Errorf("resolver and searcher are required")
	}

	// Validate transport configuration
	if err := cfg.ValidateTransport(); err != nil {
		return nil, fmt.Errorf("invalid transport configuration: %w", err)
	}

	hosts, err := cfg.IdentityHosts()
	if err != nil {
		return nil, fmt.Errorf("invalid host configuration: %w", err)
	}

	// Create MCP server instance
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	// Create transport based on configuration
	transport, err := NewTransport(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	s := &Server{
		config:    cfg,
		parser:    identity.NewParser(hosts),
		resolver:  deps.Resolver,
		searcher:  deps.Searcher,
		logger:    logger,
		mcpServer: mcpServer,
		transport: transport,
	}

	if cfg.RepositoryURL != "" {
		loc, err := s.locationFromURL(cfg.RepositoryURL)
		if err != nil {
			return nil, fmt.Errorf("invalid repository url: %w", err)
		}
		s.bound = &loc
	}

	return s, nil
}

// RegisterTools registers the fetch and search tools with the server.
// When the server is bound to a repository the tool names and descriptions are
// generated from it. This must be called before Start().
//
// Returns an error if the tools are already registered.
func (s *Server) RegisterTools() error {
	if s.registered {
		return fmt.Errorf("tools already registered")
	}

	fetchName, searchName := s.ToolNames()
	fetchDescription, searchDescription := s.toolDescriptions()

	s.logger.Info("Registering MCP tools", "fetch_tool", fetchName, "search_tool", searchName)

	fetchTool := mcp.NewTool(
		fetchName,
		mcp.WithDescription(fetchDescription),
		mcp.WithString("url",
			mcp.Description("Repository or GitHub Pages URL, e.g. 'https://gitmcp.io/owner/repo' or 'github.com/owner/repo'. Optional when the server is bound to a repository."),
		),
	)
	s.mcpServer.AddTool(fetchTool, s.handleFetchTool)

	searchTool := mcp.NewTool(
		searchName,
		mcp.WithDescription(searchDescription),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query to find relevant documentation"),
		),
		mcp.WithString("url",
			mcp.Description("Repository or GitHub Pages URL. Optional when the server is bound to a repository."),
		),
		mcp.WithBoolean("force_reindex",
			mcp.Description("Re-fetch and re-index the documentation before searching (default: false)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchTool)

	s.registered = true
	s.logger.Info("MCP tools registered successfully")
	return nil
}

// ToolNames returns the fetch and search tool names for this server.
func (s *Server) ToolNames() (fetchName, searchName string) {
	if s.bound == nil {
		return defaultFetchTool, defaultSearchTool
	}
	return identity.ToolName(*s.bound), identity.SearchToolName(*s.bound)
}

func (s *Server) toolDescriptions() (fetchDescription, searchDescription string) {
	if s.bound == nil {
		return "Fetch the primary documentation (llms.txt, README or landing page) of a GitHub repository or GitHub Pages site.",
			"Semantically search the documentation of a GitHub repository or GitHub Pages site. Returns the most relevant sections."
	}
	return identity.ToolDescription(*s.bound),
		"Semantically search the documentation of " + s.bound.Identity.String() + ". Returns the most relevant sections."
}

// Start starts the MCP server and begins listening for client connections.
// This is a blocking call that runs until the context is cancelled or an error occurs.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//
// Returns an error if the server fails to start or encounters an error during operation.
func (s *Server) Start(ctx context.Context) error {
	if !s.registered {
		return fmt.Errorf("tools not registered, call RegisterTools() first")
	}

	s.logger.Info("Starting MCP server", "transport", s.transport.Type())
	if addr := s.config.GetTransportAddress(); addr != "" {
		s.logger.Info("Transport address", "address", addr)
	}
	if s.bound != nil {
		s.logger.Info("Bound to repository", "identity", s.bound.Identity.String())
	}

	// Start the transport with the MCP server
	if err := s.transport.Start(ctx, s.mcpServer); err != nil {
		s.logger.Error("MCP server error", "error", err, "transport", s.transport.Type())
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server and cleans up resources.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//
// Returns an error if shutdown fails.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server", "transport", s.transport.Type())

	// Shutdown the transport
	if err := s.transport.Shutdown(ctx); err != nil {
		s.logger.Error("Error during transport shutdown", "error", err, "transport", s.transport.Type())
		return fmt.Errorf("transport shutdown error: %w", err)
	}

	s.logger.Info("Server shutdown complete", "transport", s.transport.Type())
	return nil
}

// locate picks the documentation location for a tool call: the url argument,
// then the inbound HTTP request, then the bound repository. A malformed inbound
// identity is an error. An inbound host that is neither a repository nor a
// pages host yields an empty identity so the resolver serves that host's own
// site, unless the server is bound to a repository.
func (s *Server) locate(ctx context.Context, request mcp.CallToolRequest) (identity.Location, error) {
	if raw := strings.TrimSpace(request.GetString("url", "")); raw != "" {
		return s.locationFromURL(raw)
	}

	if in, ok := inboundFrom(ctx); ok && in.Host != "" {
		loc, err := s.parser.Parse(in.Host, in.Path)
		if err != nil {
			return identity.Location{}, err
		}
		if loc.Identity.Kind() != identity.KindUnknown || s.bound == nil {
			return loc, nil
		}
	}

	if s.bound != nil {
		return *s.bound, nil
	}
	return identity.Location{}, ErrNoLocation
}

// locationFromURL parses a user supplied URL. github.com and <name>.<pages
// domain> URLs are mapped onto the canonical and pages hosts, and a bare
// "owner/repo" is read as a repository on the canonical host.
func (s *Server) locationFromURL(raw string) (identity.Location, error) {
	target := raw
	if !strings.Contains(target, "://") {
		target = "https://" + strings.TrimPrefix(target, "/")
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return identity.Location{}, fmt.Errorf("%w: cannot parse url %q", identity.ErrInvalidIdentity, raw)
	}

	hosts := s.parser.Hosts()
	host, path := u.Host, u.Path
	hostname := u.Hostname()
	pagesSuffix := "." + s.config.PagesDomain

	switch {
	case hostname == "github.com" || hostname == "www.github.com":
		host = hosts.Canonical
	case s.config.PagesDomain != "" && strings.HasSuffix(hostname, pagesSuffix):
		host = strings.TrimSuffix(hostname, pagesSuffix) + hosts.PagesSuffix
	case !strings.Contains(hostname, ".") && hostname != "localhost":
		host, path = hosts.Canonical, "/"+u.Host+u.Path
	}

	return s.parser.Parse(host, path)
}

// handleFetchTool handles the fetch documentation tool invocation
func (s *Server) handleFetchTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, err := s.locate(ctx, request)
	if err != nil {
		s.logger.Warn("Invalid documentation location", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.resolver.Resolve(ctx, loc)

	s.logger.Info("Documentation fetched",
		"identity", loc.Identity.String(),
		"file_used", result.FileUsed,
		"not_found", result.NotFound())

	return mcp.NewToolResultStructured(map[string]any{"fileUsed": result.FileUsed}, result.Content), nil
}

// handleSearchTool handles the search documentation tool invocation
func (s *Server) handleSearchTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract query parameter (required)
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query parameter is required and must be a non-empty string"), nil
	}

	loc, err := s.locate(ctx, request)
	if err != nil {
		s.logger.Warn("Invalid documentation location", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := s.searcher.Search(ctx, search.Request{
		Location:     loc,
		Query:        query,
		ForceReindex: request.GetBool("force_reindex", false),
	})

	s.logger.Info("Search completed",
		"identity", loc.Identity.String(),
		"query", query,
		"outcome", resp.Outcome)

	return mcp.NewToolResultStructured(map[string]any{"searchQuery": resp.SearchQuery}, resp.Text), nil
}

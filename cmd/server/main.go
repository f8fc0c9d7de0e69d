// Repository Documentation MCP Server
//
// This is the main entry point for the Repository Documentation MCP Server.
// It gives LLMs access to the documentation of any GitHub repository or GitHub
// Pages site through the Model Context Protocol (MCP).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/config"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile    string
	logLevel      string
	logFormat     string
	transportType string
	host          string
	port          int
	repositoryURL string
	showVersion   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repo-docs-mcp-server",
		Short: "Repository Documentation MCP Server",
		Long: `Repository Documentation MCP Server gives LLMs access to the documentation
of GitHub repositories and GitHub Pages sites through the Model Context Protocol (MCP).

The server exposes two tools:
  - fetch_documentation: Fetch a repository's llms.txt, README or landing page
  - search_documentation: Semantically search a repository's documentation

Documentation is located on demand and indexed lazily on the first search.
Binding the server to a repository (--repository) names the tools after it.`,
		RunE: runServer,
	}

	// Add flags
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (optional)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "Log format (json, text)")
	rootCmd.Flags().StringVarP(&transportType, "transport", "t", "", "Transport type (stdio, sse, streamablehttp)")
	rootCmd.Flags().StringVar(&host, "host", "", "Listen host for network transports")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port for network transports")
	rootCmd.Flags().StringVarP(&repositoryURL, "repository", "r", "", "Bind the tools to a repository URL, e.g. https://gitmcp.io/owner/repo")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagOverrides collects the flags the user actually set, keyed by config key.
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := map[string]interface{}{}
	set := func(flag, key string, value interface{}) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("log-level", "log_level", logLevel)
	set("log-format", "log_format", logFormat)
	set("transport", "transport_type", transportType)
	set("host", "host", host)
	set("port", "port", port)
	set("repository", "repository_url", repositoryURL)
	return overrides
}

func runServer(cmd *cobra.Command, args []string) error {
	// Show version if requested
	if showVersion {
		fmt.Printf("Repository Documentation MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit:  %s\n", commit)
		fmt.Printf("Built:   %s\n", date)
		return nil
	}

	// Load configuration: flags > config file > environment > defaults
	cfg, err := config.LoadWithFlags(configFile, flagOverrides(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	log.Info("Starting Repository Documentation MCP Server",
		"version", version,
		"commit", commit,
		"date", date)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildComponents(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create server", "error", err)
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("Error releasing resources", "error", err)
		}
	}()

	// Register MCP tools
	if err := app.server.RegisterTools(); err != nil {
		return fmt.Errorf("tool registration failed: %w", err)
	}

	go app.serveMetrics(log)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start the MCP server in a goroutine (this blocks until shutdown)
	errChan := make(chan error, 1)
	go func() {
		if err := app.server.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
			return
		}
		errChan <- nil
	}()

	// Wait for either an error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil {
			log.Error("Server error", "error", err)
			return err
		}
		log.Info("Server stopped normally")
		return nil

	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
		cancel()

		// Graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during shutdown", "error", err)
			return fmt.Errorf("shutdown error: %w", err)
		}

		log.Info("Server shutdown complete")
		return nil
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/config"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/converter"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/fetcher"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/logger"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/metrics"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/pathcache"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/resolver"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/search"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/server"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/vectorstore"
	prom "github.com/prometheus/client_golang/prometheus"
)

// components holds everything runServer starts and later tears down.
type components struct {
	server        *server.Server
	metricsServer *http.Server
	closers       []io.Closer
}

// buildComponents wires configuration into the fetch layer, the path cache,
// the vector store, the resolver and the search orchestrator.
func buildComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components, error) {
	c := &components{}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.MetricsAddress != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		c.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	fetchLog, err := logger.NewFetchLogger(cfg.LogLevel, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch logger: %w", err)
	}

	sources, err := fetcher.NewSources(
		fetcher.FetchConfig{
			RawBaseURL:    cfg.RawBaseURL,
			MaxRetries:    cfg.MaxRetries,
			FetchTimeout:  cfg.FetchTimeoutDuration(),
			MaxConcurrent: cfg.MaxConcurrent,
		},
		fetcher.GitHubSearchConfig{
			BaseURL:           cfg.GitHubAPIURL,
			Token:             cfg.GitHubToken,
			RequestsPerMinute: cfg.GitHubSearchRPM,
		},
		nil,
		fetchLog,
	)
	if err != nil {
		return nil, err
	}

	cache, err := buildPathCache(ctx, cfg, log, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	store, err := buildVectorStore(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, store)

	res, err := resolver.New(
		resolver.Config{PagesDomain: cfg.PagesDomain, CanonicalHost: cfg.CanonicalHost},
		resolver.Dependencies{
			Fetcher:   sources.Content,
			Searcher:  sources.Search,
			Converter: converter.NewConverter(),
			Cache:     cache,
			Indexer:   store,
			Metrics:   recorder,
		},
		log,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	orchestrator := search.NewOrchestrator(store, res, log,
		search.WithReindexDelay(cfg.ReindexDelay()),
		search.WithLimit(cfg.SearchLimit),
		search.WithRecorder(recorder),
	)

	srv, err := server.NewServer(cfg, server.Dependencies{Resolver: res, Searcher: orchestrator}, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	c.server = srv

	return c, nil
}

func buildPathCache(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) (pathcache.Store, error) {
	switch cfg.PathCacheBackend {
	case "file":
		store, err := pathcache.NewFileStore(cfg.PathCacheFile, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open path cache file: %w", err)
		}
		return store, nil
	case "nats":
		store, err := pathcache.NewNATSStore(ctx, cfg.NATSURL, cfg.NATSBucket, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect path cache to NATS: %w", err)
		}
		c.closers = append(c.closers, store)
		return store, nil
	default:
		return pathcache.NewMemoryStore(), nil
	}
}

func buildVectorStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*vectorstore.Store, error) {
	var embedder vectorstore.Embedder
	switch cfg.Embedder {
	case "ollama":
		embedder = vectorstore.NewOllamaEmbedder(vectorstore.OllamaConfig{
			BaseURL:    cfg.OllamaURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.FetchTimeoutDuration(),
		})
	case "gemini":
		gemini, err := vectorstore.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		embedder = gemini
	default:
		embedder = vectorstore.NewHashEmbedder(cfg.EmbeddingDimensions)
	}

	var backend vectorstore.Backend
	switch cfg.VectorBackend {
	case "sqlite":
		sqlite, err := vectorstore.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		backend = sqlite
	default:
		backend = vectorstore.NewMemoryBackend()
	}

	log.Info("Vector store configured",
		"backend", cfg.VectorBackend,
		"embedder", cfg.Embedder,
		"dimensions", embedder.Dimensions())

	chunker := vectorstore.NewChunker(
		vectorstore.WithChunkSize(cfg.ChunkSize),
		vectorstore.WithOverlap(cfg.ChunkOverlap),
	)
	return vectorstore.New(backend, embedder, log,
		vectorstore.WithChunker(chunker),
		vectorstore.WithMinScore(cfg.MinScore),
	), nil
}

// serveMetrics blocks serving /metrics until the server is shut down.
func (c *components) serveMetrics(log *slog.Logger) {
	if c.metricsServer == nil {
		return
	}
	log.Info("Serving metrics", "address", c.metricsServer.Addr)
	if err := c.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server error", "error", err)
	}
}

// Shutdown stops the MCP server and the metrics server.
func (c *components) Shutdown(ctx context.Context) error {
	var errs []error
	if c.server != nil {
		errs = append(errs, c.server.Shutdown(ctx))
	}
	if c.metricsServer != nil {
		errs = append(errs, c.metricsServer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Close releases stores and connections in reverse order of creation.
func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

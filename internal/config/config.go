// Package config provides configuration management for the Repository Documentation MCP Server.
// It supports loading configuration from multiple sources: command-line flags, config files,
// environment variables and an optional .env file, with proper precedence handling.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/identity"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. REPODOCS_LOG_LEVEL.
const EnvPrefix = "REPODOCS"

// Config holds all configuration settings for the Repository Documentation MCP Server.
type Config struct {
	// Server settings
	LogLevel       string // Log level: debug, info, warn, error (default: info)
	LogFormat      string // Log format: json, text (default: json)
	TransportType  string // Transport: stdio, sse, streamablehttp (default: stdio)
	Host           string // Listen host for network transports (default: localhost)
	Port           int    // Listen port for network transports (required unless stdio)
	MetricsAddress string // Prometheus listen address; empty disables metrics (default: empty)
	RepositoryURL  string // Repository URL the tools are bound to (default: empty, unbound)

	// Fetch settings
	FetchTimeout  int    // Timeout per request in seconds (default: 30)
	MaxRetries    int    // Retries on 5xx and network errors (default: 3)
	MaxConcurrent int    // Requests per second against raw content (default: 10)
	RawBaseURL    string // Raw repository content base (default: https://raw.githubusercontent.com)

	// Host layout
	PagesDomain        string   // GitHub Pages domain (default: github.io)
	CanonicalHost      string   // Repository host, e.g. gitmcp.io; ".<host>" marks pages hosts
	AlternateHosts     []string // Additional repository hosts (default: git-mcp.vercel.app)
	PreviewHostPattern string   // Regular expression for preview deployment hosts

	// GitHub code search
	GitHubAPIURL    string // REST API base (default: https://api.github.com/)
	GitHubToken     string // Optional token, also read from GITHUB_TOKEN
	GitHubSearchRPM int    // Code search requests per minute; 0 disables limiting (default: 10)

	// Path cache
	PathCacheBackend string // memory, file, nats (default: memory)
	PathCacheFile    string // JSON file for the file backend
	NATSURL          string // NATS server URL for the nats backend
	NATSBucket       string // JetStream key-value bucket for the nats backend

	// Vector store
	VectorBackend       string  // memory, sqlite (default: memory)
	SQLitePath          string  // Database path for the sqlite backend
	Embedder            string  // hash, ollama, gemini (default: hash)
	EmbeddingDimensions int     // Vector size (default: 512)
	EmbeddingModel      string  // Model name for ollama and gemini
	OllamaURL           string  // Ollama base URL (default: http://localhost:11434)
	GeminiAPIKey        string  // Gemini API key, also read from GEMINI_API_KEY
	ChunkSize           int     // Maximum chunk size in characters (default: 1000)
	ChunkOverlap        int     // Overlap between hard-split chunks (default: 200)
	MinScore            float64 // Results scoring at or below are dropped (default: 0)

	// Search settings
	SearchLimit    int // Chunks returned per search (default: 5)
	ReindexDelayMS int // Wait between indexing and re-search in milliseconds (default: 1000)
}

// NewConfig creates a new Config with default values for all optional parameters.
// This ensures that the server can run with sensible defaults without requiring
// explicit configuration.
func NewConfig() *Config {
	return &Config{
		// Server defaults
		LogLevel:      "info",
		LogFormat:     "json",
		TransportType: "stdio",
		Host:          "localhost",

		// Fetch defaults
		FetchTimeout:  30,
		MaxRetries:    3,
		MaxConcurrent: 10,
		RawBaseURL:    "https://raw.githubusercontent.com",

		// Host layout defaults
		PagesDomain:        "github.io",
		CanonicalHost:      "gitmcp.io",
		AlternateHosts:     []string{"git-mcp.vercel.app"},
		PreviewHostPattern: `^git-mcp-git-.*-git-mcp\.vercel\.app$`,

		// GitHub defaults
		GitHubAPIURL:    "https://api.github.com/",
		GitHubSearchRPM: 10,

		// Storage defaults
		PathCacheBackend:    "memory",
		NATSURL:             "nats://127.0.0.1:4222",
		NATSBucket:          "repodocs_paths",
		VectorBackend:       "memory",
		SQLitePath:          "repodocs.db",
		Embedder:            "hash",
		EmbeddingDimensions: 512,
		OllamaURL:           "http://localhost:11434",
		ChunkSize:           1000,
		ChunkOverlap:        200,

		// Search defaults
		SearchLimit:    5,
		ReindexDelayMS: 1000,
	}
}

// field binds one configuration key to a Config field.
type field struct {
	key string
	env []string // extra environment variables, checked after the prefixed one
	set func(c *Config, v *viper.Viper)
}

var fields = []field{
	{key: "log_level", set: func(c *Config, v *viper.Viper) { c.LogLevel = v.GetString("log_level") }},
	{key: "log_format", set: func(c *Config, v *viper.Viper) { c.LogFormat = v.GetString("log_format") }},
	{key: "transport_type", set: func(c *Config, v *viper.Viper) { c.TransportType = v.GetString("transport_type") }},
	{key: "host", set: func(c *Config, v *viper.Viper) { c.Host = v.GetString("host") }},
	{key: "port", set: func(c *Config, v *viper.Viper) { c.Port = v.GetInt("port") }},
	{key: "metrics_address", set: func(c *Config, v *viper.Viper) { c.MetricsAddress = v.GetString("metrics_address") }},
	{key: "repository_url", set: func(c *Config, v *viper.Viper) { c.RepositoryURL = v.GetString("repository_url") }},
	{key: "fetch_timeout", set: func(c *Config, v *viper.Viper) { c.FetchTimeout = v.GetInt("fetch_timeout") }},
	{key: "max_retries", set: func(c *Config, v *viper.Viper) { c.MaxRetries = v.GetInt("max_retries") }},
	{key: "max_concurrent", set: func(c *Config, v *viper.Viper) { c.MaxConcurrent = v.GetInt("max_concurrent") }},
	{key: "raw_base_url", set: func(c *Config, v *viper.Viper) { c.RawBaseURL = v.GetString("raw_base_url") }},
	{key: "pages_domain", set: func(c *Config, v *viper.Viper) { c.PagesDomain = v.GetString("pages_domain") }},
	{key: "canonical_host", set: func(c *Config, v *viper.Viper) { c.CanonicalHost = v.GetString("canonical_host") }},
	{key: "alternate_hosts", set: func(c *Config, v *viper.Viper) { c.AlternateHosts = v.GetStringSlice("alternate_hosts") }},
	{key: "preview_host_pattern", set: func(c *Config, v *viper.Viper) { c.PreviewHostPattern = v.GetString("preview_host_pattern") }},
	{key: "github_api_url", set: func(c *Config, v *viper.Viper) { c.GitHubAPIURL = v.GetString("github_api_url") }},
	{key: "github_token", env: []string{"GITHUB_TOKEN"}, set: func(c *Config, v *viper.Viper) { c.GitHubToken = v.GetString("github_token") }},
	{key: "github_search_rpm", set: func(c *Config, v *viper.Viper) { c.GitHubSearchRPM = v.GetInt("github_search_rpm") }},
	{key: "path_cache_backend", set: func(c *Config, v *viper.Viper) { c.PathCacheBackend = v.GetString("path_cache_backend") }},
	{key: "path_cache_file", set: func(c *Config, v *viper.Viper) { c.PathCacheFile = v.GetString("path_cache_file") }},
	{key: "nats_url", env: []string{"NATS_URL"}, set: func(c *Config, v *viper.Viper) { c.NATSURL = v.GetString("nats_url") }},
	{key: "nats_bucket", set: func(c *Config, v *viper.Viper) { c.NATSBucket = v.GetString("nats_bucket") }},
	{key: "vector_backend", set: func(c *Config, v *viper.Viper) { c.VectorBackend = v.GetString("vector_backend") }},
	{key: "sqlite_path", set: func(c *Config, v *viper.Viper) { c.SQLitePath = v.GetString("sqlite_path") }},
	{key: "embedder", set: func(c *Config, v *viper.Viper) { c.Embedder = v.GetString("embedder") }},
	{key: "embedding_dimensions", set: func(c *Config, v *viper.Viper) { c.EmbeddingDimensions = v.GetInt("embedding_dimensions") }},
	{key: "embedding_model", set: func(c *Config, v *viper.Viper) { c.EmbeddingModel = v.GetString("embedding_model") }},
	{key: "ollama_url", set: func(c *Config, v *viper.Viper) { c.OllamaURL = v.GetString("ollama_url") }},
	{key: "gemini_api_key", env: []string{"GEMINI_API_KEY"}, set: func(c *Config, v *viper.Viper) { c.GeminiAPIKey = v.GetString("gemini_api_key") }},
	{key: "chunk_size", set: func(c *Config, v *viper.Viper) { c.ChunkSize = v.GetInt("chunk_size") }},
	{key: "chunk_overlap", set: func(c *Config, v *viper.Viper) { c.ChunkOverlap = v.GetInt("chunk_overlap") }},
	{key: "min_score", set: func(c *Config, v *viper.Viper) { c.MinScore = v.GetFloat64("min_score") }},
	{key: "search_limit", set: func(c *Config, v *viper.Viper) { c.SearchLimit = v.GetInt("search_limit") }},
	{key: "reindex_delay_ms", set: func(c *Config, v *viper.Viper) { c.ReindexDelayMS = v.GetInt("reindex_delay_ms") }},
}

// apply copies every key set in v into cfg.
func apply(cfg *Config, v *viper.Viper) {
	for _, f := range fields {
		if v.IsSet(f.key) {
			f.set(cfg, v)
		}
	}
}

// Load loads configuration from environment variables with defaults.
// Environment variables are prefixed with REPODOCS_ (e.g. REPODOCS_LOG_LEVEL).
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	return LoadWithFlags("", nil)
}

// LoadFromFile loads configuration from a YAML, TOML or JSON file, with
// environment variables as fallback, and defaults as final fallback.
// The precedence order is: config file > environment variables > defaults.
func LoadFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path cannot be empty")
	}
	return LoadWithFlags(configPath, nil)
}

// LoadWithFlags loads configuration from command-line flags, config file,
// environment variables, and defaults.
// The precedence order is: flags > config file > environment variables > defaults.
// Flag keys use the config file names (e.g. "log_level"); nil values are ignored.
func LoadWithFlags(configPath string, flags map[string]interface{}) (*Config, error) {
	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}

	// Start with defaults
	cfg := NewConfig()

	// Load environment variables (override defaults)
	apply(cfg, envViper())

	// Load config file if provided (override env vars)
	if configPath != "" {
		v := viper.New()
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		apply(cfg, v)
	}

	// Override with flags (highest precedence)
	if len(flags) > 0 {
		v := viper.New()
		for key, val := range flags {
			if val != nil {
				v.Set(key, val)
			}
		}
		apply(cfg, v)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads variables from path (".env" when empty) into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// envViper returns a viper instance bound to the REPODOCS_* environment
// variables and the unprefixed aliases some keys accept.
func envViper() *viper.Viper {
	v := viper.New()
	for _, f := range fields {
		names := append([]string{EnvKey(f.key)}, f.env...)
		_ = v.BindEnv(append([]string{f.key}, names...)...)
	}
	return v
}

// EnvKey converts a config key to its environment variable name.
// Example: log_level -> REPODOCS_LOG_LEVEL
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// FetchTimeoutDuration returns the per-request timeout.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// ReindexDelay returns the wait between indexing and the re-search.
func (c *Config) ReindexDelay() time.Duration {
	return time.Duration(c.ReindexDelayMS) * time.Millisecond
}

// IdentityHosts returns the host layout used to parse inbound requests.
func (c *Config) IdentityHosts() (identity.Hosts, error) {
	hosts := identity.Hosts{
		PagesSuffix: "." + c.CanonicalHost,
		Canonical:   c.CanonicalHost,
		Alternates:  c.AlternateHosts,
	}
	if c.PreviewHostPattern != "" {
		re, err := regexp.Compile(c.PreviewHostPattern)
		if err != nil {
			return identity.Hosts{}, fmt.Errorf("invalid preview_host_pattern: %w", err)
		}
		hosts.Preview = re
	}
	return hosts, nil
}

// GetTransportType returns the configured transport type
func (c *Config) GetTransportType() string {
	return c.TransportType
}

// GetPort returns the configured listen port
func (c *Config) GetPort() int {
	return c.Port
}

// GetTransportAddress returns the network address for the transport.
// Returns "host:port" for network transports and an empty string for stdio.
func (c *Config) GetTransportAddress() string {
	if c.TransportType == "stdio" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ValidateTransport validates only the transport settings.
func (c *Config) ValidateTransport() error {
	if errs := c.transportErrors(); len(errs) > 0 {
		return fmt.Errorf("transport validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) transportErrors() []string {
	var errs []string
	switch c.TransportType {
	case "stdio":
	case "sse", "streamablehttp":
		if c.Host == "" {
			errs = append(errs, fmt.Sprintf("host cannot be empty for %s transport", c.TransportType))
		}
		if c.Port < 1 || c.Port > 65535 {
			errs = append(errs, fmt.Sprintf("port must be between 1 and 65535 for %s transport, got: %d", c.TransportType, c.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid transport type: %s (must be one of: stdio, sse, streamablehttp)", c.TransportType))
	}
	return errs
}

// Validate validates all configuration values and returns descriptive errors
// for any invalid settings. This should be called after loading configuration
// to ensure the server doesn't start with invalid configuration.
func (c *Config) Validate() error {
	var errs []string

	// Validate log settings
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be one of: json, text)", c.LogFormat))
	}

	errs = append(errs, c.transportErrors()...)

	// Validate fetch settings
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("fetch_timeout must be positive, got: %d", c.FetchTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("max_retries cannot be negative, got: %d", c.MaxRetries))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Sprintf("max_concurrent must be positive, got: %d", c.MaxConcurrent))
	}
	if msg := validateHTTPURL("raw_base_url", c.RawBaseURL); msg != "" {
		errs = append(errs, msg)
	}
	if msg := validateHTTPURL("github_api_url", c.GitHubAPIURL); msg != "" {
		errs = append(errs, msg)
	}
	if c.GitHubSearchRPM < 0 {
		errs = append(errs, fmt.Sprintf("github_search_rpm cannot be negative, got: %d", c.GitHubSearchRPM))
	}

	// Validate host layout
	if c.PagesDomain == "" {
		errs = append(errs, "pages_domain cannot be empty")
	}
	if c.CanonicalHost == "" {
		errs = append(errs, "canonical_host cannot be empty")
	}
	if _, err := regexp.Compile(c.PreviewHostPattern); err != nil {
		errs = append(errs, fmt.Sprintf("invalid preview_host_pattern: %v", err))
	}

	// Validate path cache
	switch c.PathCacheBackend {
	case "memory":
	case "file":
		if c.PathCacheFile == "" {
			errs = append(errs, "path_cache_file is required for the file path cache")
		}
	case "nats":
		if c.NATSURL == "" {
			errs = append(errs, "nats_url is required for the nats path cache")
		}
		if c.NATSBucket == "" {
			errs = append(errs, "nats_bucket is required for the nats path cache")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid path_cache_backend: %s (must be one of: memory, file, nats)", c.PathCacheBackend))
	}

	// Validate vector store
	switch c.VectorBackend {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, "sqlite_path is required for the sqlite vector store")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid vector_backend: %s (must be one of: memory, sqlite)", c.VectorBackend))
	}

	switch c.Embedder {
	case "hash":
	case "ollama":
		if c.EmbeddingModel == "" {
			errs = append(errs, "embedding_model is required for the ollama embedder")
		}
		if msg := validateHTTPURL("ollama_url", c.OllamaURL); msg != "" {
			errs = append(errs, msg)
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, "gemini_api_key is required for the gemini embedder")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid embedder: %s (must be one of: hash, ollama, gemini)", c.Embedder))
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, fmt.Sprintf("embedding_dimensions must be positive, got: %d", c.EmbeddingDimensions))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Sprintf("chunk_size must be positive, got: %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || (c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize) {
		errs = append(errs, fmt.Sprintf("chunk_overlap must be between 0 and chunk_size-1, got: %d", c.ChunkOverlap))
	}

	// Validate search settings
	if c.SearchLimit <= 0 {
		errs = append(errs, fmt.Sprintf("search_limit must be positive, got: %d", c.SearchLimit))
	}
	if c.ReindexDelayMS < 0 {
		errs = append(errs, fmt.Sprintf("reindex_delay_ms cannot be negative, got: %d", c.ReindexDelayMS))
	}
	if c.RepositoryURL != "" {
		if _, err := url.Parse(c.RepositoryURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid repository_url: %v", err))
		}
	}

	// If there are validation errors, return them all
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validateHTTPURL(name, raw string) string {
	if raw == "" {
		return name + " cannot be empty"
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Sprintf("%s must start with http:// or https://, got: %s", name, raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Sprintf("%s is incomplete: %s", name, raw)
	}
	return ""
}

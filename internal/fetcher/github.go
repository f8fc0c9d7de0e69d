package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// GitHubSearchConfig holds configuration for the GitHub code search client
type GitHubSearchConfig struct {
	BaseURL           string        // REST API base, e.g. "https://api.github.com/"
	Token             string        // Optional personal access token
	Timeout           time.Duration // Timeout per HTTP request
	RequestsPerMinute int           // Search API budget; 0 disables client-side limiting
	Transport         http.RoundTripper
}

// GitHubCodeSearcher locates files inside a repository through the GitHub code
// search API.
type GitHubCodeSearcher struct {
	client  *github.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGitHubCodeSearcher creates a code searcher. Without a token, requests are
// unauthenticated and subject to GitHub's lower limits.
func NewGitHubCodeSearcher(cfg GitHubSearchConfig, logger zerolog.Logger) (*GitHubCodeSearcher, error) {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var transport http.RoundTripper = base
	if cfg.Token != "" {
		// TokenType "token" yields "Authorization: token <pat>".
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "token"})
		transport = &oauth2.Transport{Source: src, Base: base}
	}

	client := github.NewClient(&http.Client{Transport: transport, Timeout: cfg.Timeout})
	client.UserAgent = userAgent

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &GitHubCodeSearcher{
		client:  client,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// FindFile searches owner/repo for a file named filename and returns the path of
// the first match. Errors, non-2xx answers, empty result sets and an exhausted
// request budget all yield false.
func (s *GitHubCodeSearcher) FindFile(ctx context.Context, owner, repo, filename string) (string, bool) {
	query := fmt.Sprintf("filename:%s repo:%s/%s", filename, owner, repo)

	// Over budget counts as not found rather than queueing the caller.
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Debug().
			Str("query", query).
			Msg("GitHub code search skipped: rate limited")
		return "", false
	}

	s.logger.Debug().
		Str("query", query).
		Msg("Searching repository code")

	result, _, err := s.client.Search.Code(ctx, query, nil)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("query", query).
			Msg("GitHub code search failed")
		return "", false
	}

	if len(result.CodeResults) == 0 {
		s.logger.Debug().
			Str("query", query).
			Msg("GitHub code search returned no matches")
		return "", false
	}

	path := result.CodeResults[0].GetPath()
	if path == "" {
		return "", false
	}

	s.logger.Info().
		Str("query", query).
		Str("path", path).
		Int("total", result.GetTotal()).
		Msg("GitHub code search found file")

	return path, true
}

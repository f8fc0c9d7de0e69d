// Package fetcher provides HTTP client functionality for fetching documentation
// files from GitHub Pages sites and raw repository content, with retry logic,
// rate limiting, and error handling.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultRawBaseURL serves raw repository files by owner, repo, branch and path.
const DefaultRawBaseURL = "https://raw.githubusercontent.com"

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	userAgent      = "repo-docs-mcp-server/1.0"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 400 && e.Code < 500 {
		return fmt.Sprintf("client error: HTTP %d", e.Code)
	}
	if e.Code >= 500 {
		return fmt.Sprintf("server error: HTTP %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: HTTP %d", e.Code)
}

// IsNotFound reports whether err is a 404 from the remote side.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// HTTPClient provides HTTP client functionality with timeout, retry logic, and rate limiting
type HTTPClient struct {
	client      *http.Client
	maxRetries  int
	rateLimiter *rate.Limiter
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTransport replaces the underlying round tripper, keeping the timeout.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) {
		c.client.Transport = rt
	}
}

// NewHTTPClient creates a new HTTP client with the specified timeout, max retries, and max concurrent requests.
// The client implements exponential backoff retry mechanism and rate limiting for concurrent requests.
//
// Parameters:
//   - timeout: HTTP request timeout duration
//   - maxRetries: Maximum number of retry attempts (not including the initial request)
//   - maxConcurrent: Maximum number of requests per second, also used as the burst size
//
// Returns a configured HTTPClient ready for use.
func NewHTTPClient(timeout time.Duration, maxRetries int, maxConcurrent int, opts ...Option) *HTTPClient {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	c := &HTTPClient{
		client:      &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		rateLimiter: rate.NewLimiter(rate.Limit(maxConcurrent), maxConcurrent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// backoffDelay returns the wait before the given retry attempt (1-based):
// 1s, 2s, 4s, ... capped at 60s.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	exp := math.Pow(2, float64(attempt-1))
	if exp > float64(maxBackoff/initialBackoff) {
		return maxBackoff
	}
	return time.Duration(exp) * initialBackoff
}

// Fetch retrieves content from the specified URL with retry logic and rate limiting.
// Retries on 5xx errors and network errors, but not on 4xx client errors.
func (c *HTTPClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = &StatusError{Code: resp.StatusCode}
			continue
		default:
			return nil, &StatusError{Code: resp.StatusCode}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ContentFetcher retrieves single documentation files. Every failure is turned
// into absence so callers can chain fallbacks.
type ContentFetcher struct {
	client     *HTTPClient
	rawBaseURL string
	logger     zerolog.Logger
}

// NewContentFetcher creates a fetcher that reads raw repository files from rawBaseURL
// (DefaultRawBaseURL when empty).
func NewContentFetcher(client *HTTPClient, rawBaseURL string, logger zerolog.Logger) *ContentFetcher {
	if rawBaseURL == "" {
		rawBaseURL = DefaultRawBaseURL
	}
	return &ContentFetcher{
		client:     client,
		rawBaseURL: strings.TrimRight(rawBaseURL, "/"),
		logger:     logger,
	}
}

// RawURL builds the raw content URL for a repository file.
func (f *ContentFetcher) RawURL(owner, repo, branch, path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", f.rawBaseURL, owner, repo, branch, strings.TrimLeft(path, "/"))
}

// FetchURL performs a GET on url and returns the body when the response is 2xx
// and non-empty.
func (f *ContentFetcher) FetchURL(ctx context.Context, url string) (string, bool) {
	f.logger.Debug().
		Str("url", url).
		Msg("Fetching documentation file")

	content, err := f.client.Fetch(ctx, url)
	if err != nil {
		ev := f.logger.Warn()
		if IsNotFound(err) {
			ev = f.logger.Debug()
		}
		ev.Err(err).
			Str("url", url).
			Msg("Documentation file not available")
		return "", false
	}
	if len(content) == 0 {
		f.logger.Debug().
			Str("url", url).
			Msg("Documentation file is empty")
		return "", false
	}

	f.logger.Debug().
		Str("url", url).
		Int("content_size", len(content)).
		Msg("Fetched documentation file")

	return string(content), true
}

// FetchRaw fetches path from owner/repo at branch.
func (f *ContentFetcher) FetchRaw(ctx context.Context, owner, repo, branch, path string) (string, bool) {
	return f.FetchURL(ctx, f.RawURL(owner, repo, branch, path))
}

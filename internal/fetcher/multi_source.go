package fetcher

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// FetchConfig holds configuration for raw documentation fetching
type FetchConfig struct {
	RawBaseURL    string        // Raw repository content base (e.g., "https://raw.githubusercontent.com")
	MaxRetries    int           // Maximum number of retry attempts
	FetchTimeout  time.Duration // Timeout per HTTP request
	MaxConcurrent int           // Maximum requests per second
}

// Sources bundles the fetchers a resolver needs. The content fetcher and the
// code searcher share one transport so tests can swap it in a single place.
type Sources struct {
	Content *ContentFetcher
	Search  *GitHubCodeSearcher
}

// NewSources builds the content fetcher and the code searcher. transport may be
// nil to use http.DefaultTransport.
func NewSources(fetchCfg FetchConfig, searchCfg GitHubSearchConfig, transport http.RoundTripper, logger zerolog.Logger) (*Sources, error) {
	var opts []Option
	if transport != nil {
		opts = append(opts, WithTransport(transport))
		searchCfg.Transport = transport
	}
	if searchCfg.Timeout == 0 {
		searchCfg.Timeout = fetchCfg.FetchTimeout
	}

	client := NewHTTPClient(fetchCfg.FetchTimeout, fetchCfg.MaxRetries, fetchCfg.MaxConcurrent, opts...)

	searcher, err := NewGitHubCodeSearcher(searchCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create code searcher: %w", err)
	}

	logger.Debug().
		Str("raw_base_url", fetchCfg.RawBaseURL).
		Bool("authenticated", searchCfg.Token != "").
		Msg("Documentation sources configured")

	return &Sources{
		Content: NewContentFetcher(client, fetchCfg.RawBaseURL, logger),
		Search:  searcher,
	}, nil
}

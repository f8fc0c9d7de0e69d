// Package search answers documentation queries against the vector store,
// indexing a repository's documentation on first use.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/identity"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/metrics"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/resolver"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/vectorstore"
)

const (
	// DefaultReindexDelay is the pause between indexing and the re-search.
	DefaultReindexDelay = time.Second
	// DefaultLimit is the number of chunks returned per search.
	DefaultLimit = 5
)

// Search outcomes, also used as metric labels.
const (
	OutcomeHit           = "hit"
	OutcomeReindexed     = "reindexed"
	OutcomeFreshNoMatch  = "indexed_no_match"
	OutcomeIndexFailed   = "index_failed"
	OutcomeNotFound      = "not_found"
	OutcomeInternalError = "error"
)

// VectorStore is the subset of the vector store the orchestrator needs.
type VectorStore interface {
	Index(ctx context.Context, ns vectorstore.Namespace, text, source string) (int, error)
	Search(ctx context.Context, ns vectorstore.Namespace, query string, limit int) ([]vectorstore.SearchResult, error)
}

// DocumentResolver resolves a location to documentation content.
type DocumentResolver interface {
	Resolve(ctx context.Context, loc identity.Location) resolver.Result
}

// Request is one search call.
type Request struct {
	Location     identity.Location
	Query        string
	ForceReindex bool
}

// Response is the rendered answer. Text is always a well-formed report.
type Response struct {
	SearchQuery string
	Text        string
	Outcome     string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReindexDelay sets the pause between indexing and the re-search.
func WithReindexDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.reindexDelay = d }
}

// WithLimit sets the number of chunks requested per search.
func WithLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

// Orchestrator runs the search state machine:
//
//	Searching -> (hit: Done | miss: Indexing) -> Reindexing-Search -> Done | Degraded
type Orchestrator struct {
	store        VectorStore
	resolver     DocumentResolver
	metrics      metrics.Recorder
	logger       *slog.Logger
	reindexDelay time.Duration
	limit        int
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a search orchestrator over store, using res to fetch
// documentation for namespaces that have not been indexed yet.
func NewOrchestrator(store VectorStore, res DocumentResolver, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		resolver:     res,
		metrics:      metrics.NoopRecorder{},
		logger:       logger,
		reindexDelay: DefaultReindexDelay,
		limit:        DefaultLimit,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NamespaceFor maps a location to its vector namespace: repositories use
// (owner, repo), pages sites use (subdomain, path), anything else uses the host
// with dots replaced by underscores. An empty path becomes "docs".
func NamespaceFor(loc identity.Location) vectorstore.Namespace {
	id := loc.Identity
	switch id.Kind() {
	case identity.KindRepository:
		return vectorstore.Namespace{Owner: id.Owner, Repo: id.Repo}
	case identity.KindPages:
		return vectorstore.Namespace{Owner: id.Subdomain, Repo: orDocs(id.Path)}
	default:
		return vectorstore.Namespace{Owner: strings.ReplaceAll(loc.Host, ".", "_"), Repo: orDocs(loc.Path)}
	}
}

func orDocs(s string) string {
	if s == "" {
		return "docs"
	}
	return s
}

// Search answers req. Faults inside the pipeline are reported in the response
// text; Search itself does not fail.
func (o *Orchestrator) Search(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	ns := NamespaceFor(req.Location)
	resp.SearchQuery = req.Query

	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("Search pipeline failed", "namespace", ns.String(), "panic", fmt.Sprint(p))
			resp = o.degraded(req.Query, OutcomeInternalError,
				"An error occurred while searching the documentation. Please try again later.")
		}
		o.metrics.IncSearch(resp.Outcome)
		o.metrics.ObserveSearchDuration(time.Since(start))
		o.logger.Info("Search completed",
			"namespace", ns.String(),
			"query", req.Query,
			"outcome", resp.Outcome,
			"duration", time.Since(start))
	}()

	results, err := o.store.Search(ctx, ns, req.Query, o.limit)
	if err != nil {
		o.logger.Error("Vector search failed", "namespace", ns.String(), "error", err)
		return o.degraded(req.Query, OutcomeInternalError,
			"An error occurred while searching the documentation. Please try again later.")
	}

	if len(results) > 0 && !req.ForceReindex {
		return o.done(req.Query, results, OutcomeHit)
	}

	if req.ForceReindex {
		o.logger.Info("Force reindexing", "namespace", ns.String())
	} else {
		o.logger.Info("No search results found, fetching documentation first", "namespace", ns.String())
	}

	doc := o.resolver.Resolve(ctx, req.Location)
	o.logger.Info("Fetched documentation", "file_used", doc.FileUsed, "length", len(doc.Content))

	if doc.NotFound() {
		if len(results) > 0 {
			return o.done(req.Query, results, OutcomeHit)
		}
		return o.noMatch(req.Query, ns, OutcomeNotFound)
	}

	count, err := o.store.Index(ctx, ns, doc.Content, doc.FileUsed)
	if err == nil {
		o.metrics.AddIndexedChunks(count)
		o.logger.Info("Indexed documentation", "namespace", ns.String(), "chunks", count)

		if err = o.sleep(ctx, o.reindexDelay); err == nil {
			results, err = o.store.Search(ctx, ns, req.Query, o.limit)
		}
	}
	if err != nil {
		o.logger.Error("Error indexing documentation", "namespace", ns.String(), "error", err)
		return o.degraded(req.Query, OutcomeIndexFailed,
			"We encountered an issue while indexing the documentation. Please try your search again in a moment.")
	}

	o.logger.Debug("Re-search after indexing", "namespace", ns.String(), "results", len(results))
	if len(results) == 0 {
		return o.degraded(req.Query, OutcomeFreshNoMatch, fmt.Sprintf(
			"We've just indexed the documentation for this repository (%d chunks). "+
				"Your search didn't match any sections.\n\n"+
				"Please try your search again in a moment, or try different search terms.", count))
	}
	return o.done(req.Query, results, OutcomeReindexed)
}

func (o *Orchestrator) done(query string, results []vectorstore.SearchResult, outcome string) Response {
	return Response{SearchQuery: query, Text: FormatResults(results, query), Outcome: outcome}
}

func (o *Orchestrator) degraded(query, outcome, message string) Response {
	return Response{SearchQuery: query, Text: Header(query) + message, Outcome: outcome}
}

// noMatch explains that nothing matched and suggests better queries.
func (o *Orchestrator) noMatch(query string, ns vectorstore.Namespace, outcome string) Response {
	text := "No relevant documentation found for your query. The documentation for this repository has been indexed, " +
		"but no sections matched your specific search terms.\n\n" +
		"Try:\n" +
		"- Using different keywords\n" +
		"- Being more specific about what you're looking for\n" +
		"- Checking for basic information like \"What is " + ns.Repo + "?\"\n" +
		"- Using common terms like \"installation\", \"tutorial\", or \"example\"\n"
	return o.degraded(query, outcome, text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

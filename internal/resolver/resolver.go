// Package resolver locates the best available documentation for a repository
// identity by walking an ordered chain of sources: cached paths, well-known
// llms.txt locations, GitHub code search, READMEs and GitHub Pages sites.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/identity"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/metrics"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/pathcache"
	"github.com/j4ng5y/repo-docs-mcp-server/internal/vectorstore"
	"golang.org/x/sync/errgroup"
)

const (
	// NotFoundContent is returned as content when every source missed.
	NotFoundContent = "No documentation found."
	// GeneratedLabel is the FileUsed label paired with NotFoundContent.
	GeneratedLabel = "generated"
	// LandingPageLabel marks content converted from a pages site's index.html.
	LandingPageLabel = "landing page (index.html, converted to Markdown)"
	// CodeSearchLabel marks an llms.txt located through the code search API.
	CodeSearchLabel = "llms.txt (found via GitHub Search API)"

	llmsFile      = "llms.txt"
	readmeFile    = "README.md"
	defaultReadme = "readme.md"
)

// StaticLocations are probed in order for an llms.txt file.
var StaticLocations = []string{
	"docs/docs/llms.txt",
	"llms.txt",
	"docs/llms.txt",
	"documentation/llms.txt",
}

// Branches are tried in preference order at every tier.
var Branches = []string{"main", "master"}

// Result is the outcome of a resolution. Content is never empty.
type Result struct {
	FileUsed string
	Content  string
}

// NotFound reports whether the result is the generated placeholder.
func (r Result) NotFound() bool {
	return r.FileUsed == GeneratedLabel && r.Content == NotFoundContent
}

// ContentFetcher retrieves documents. Every failure is reported as absence.
type ContentFetcher interface {
	FetchURL(ctx context.Context, url string) (string, bool)
	FetchRaw(ctx context.Context, owner, repo, branch, path string) (string, bool)
}

// CodeSearcher finds a file by name inside a repository.
type CodeSearcher interface {
	FindFile(ctx context.Context, owner, repo, filename string) (string, bool)
}

// HTMLConverter turns an HTML page into Markdown.
type HTMLConverter interface {
	Convert(html string) (string, error)
}

// Indexer stores resolved documentation for later search.
type Indexer interface {
	Index(ctx context.Context, ns vectorstore.Namespace, text, source string) (int, error)
}

// Config holds the host layout the resolver needs.
type Config struct {
	// PagesDomain is the GitHub Pages domain, e.g. "github.io".
	PagesDomain string
	// CanonicalHost is replaced by PagesDomain for unknown hosts, e.g. "gitmcp.io".
	CanonicalHost string
}

// DefaultConfig returns the production host layout.
func DefaultConfig() Config {
	return Config{PagesDomain: "github.io", CanonicalHost: "gitmcp.io"}
}

// Dependencies are the resolver's collaborators. Fetcher is required; a nil
// Searcher skips code search, a nil Converter skips landing pages, a nil
// Indexer skips indexing, a nil Cache uses an in-memory cache.
type Dependencies struct {
	Fetcher   ContentFetcher
	Searcher  CodeSearcher
	Converter HTMLConverter
	Cache     pathcache.Store
	Indexer   Indexer
	Metrics   metrics.Recorder
}

// Resolver walks the documentation fallback chain.
type Resolver struct {
	cfg       Config
	fetcher   ContentFetcher
	searcher  CodeSearcher
	converter HTMLConverter
	cache     pathcache.Store
	indexer   Indexer
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// New creates a Resolver.
func New(cfg Config, deps Dependencies, logger *slog.Logger) (*Resolver, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("content fetcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.PagesDomain == "" {
		cfg.PagesDomain = DefaultConfig().PagesDomain
	}
	if cfg.CanonicalHost == "" {
		cfg.CanonicalHost = DefaultConfig().CanonicalHost
	}

	cache := deps.Cache
	if cache == nil {
		cache = pathcache.NewMemoryStore()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	return &Resolver{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		searcher:  deps.Searcher,
		converter: deps.Converter,
		cache:     cache,
		indexer:   deps.Indexer,
		metrics:   recorder,
		logger:    logger,
	}, nil
}

// Resolve returns the best documentation for loc. It never fails: a total miss
// yields {GeneratedLabel, NotFoundContent}.
func (r *Resolver) Resolve(ctx context.Context, loc identity.Location) Result {
	start := time.Now()
	id := loc.Identity

	var (
		res      Result
		ok       bool
		strategy string
	)
	switch {
	case id.Subdomain != "" && id.Path != "":
		res, ok = r.resolvePages(ctx, id)
		strategy = "pages"
	case id.Owner != "" && id.Repo != "":
		res, ok, strategy = r.resolveRepository(ctx, id)
	default:
		res, ok = r.resolveDefault(ctx, loc)
		strategy = "default"
	}

	if !ok {
		res = Result{FileUsed: GeneratedLabel, Content: NotFoundContent}
		strategy = "not_found"
	}

	r.metrics.IncResolution(strategy)
	r.metrics.ObserveResolveDuration(strategy, time.Since(start))
	r.logger.Info("Documentation resolved",
		"identity", id.String(),
		"host", loc.Host,
		"file_used", res.FileUsed,
		"strategy", strategy,
		"length", len(res.Content))

	return res
}

// resolvePages handles {subdomain, path}: llms.txt, then the converted landing page.
func (r *Resolver) resolvePages(ctx context.Context, id identity.Identity) (Result, bool) {
	base := fmt.Sprintf("https://%s.%s/%s/", id.Subdomain, r.cfg.PagesDomain, id.Path)

	var res Result
	found := false

	r.step("pages_llms", func() {
		if content, ok := r.fetcher.FetchURL(ctx, base+llmsFile); ok {
			res, found = Result{FileUsed: llmsFile, Content: content}, true
		}
	})
	if found || r.converter == nil {
		return res, found
	}

	r.step("pages_landing", func() {
		html, ok := r.fetcher.FetchURL(ctx, base)
		if !ok {
			return
		}
		md, err := r.converter.Convert(html)
		if err != nil {
			r.logger.Warn("Failed to convert landing page", "url", base, "error", err)
			return
		}
		res, found = Result{FileUsed: LandingPageLabel, Content: md}, true
	})
	return res, found
}

// resolveRepository handles {owner, repo}. When every step misses, the returned
// label is the label of the last attempt.
func (r *Resolver) resolveRepository(ctx context.Context, id identity.Identity) (Result, bool, string) {
	owner, repo := id.Owner, id.Repo

	res, ok, strategy := r.repositoryChain(ctx, owner, repo)
	if !ok {
		r.logger.Warn("Failed to find documentation",
			"owner", owner,
			"repo", repo,
			"last_attempt", res.FileUsed)
		return res, false, strategy
	}

	if r.indexer != nil {
		r.step("index", func() {
			ns := vectorstore.Namespace{Owner: owner, Repo: repo}
			count, err := r.indexer.Index(ctx, ns, res.Content, res.FileUsed)
			if err != nil {
				r.logger.Warn("Failed to store documentation vectors", "namespace", ns.String(), "error", err)
				return
			}
			r.logger.Debug("Stored documentation vectors", "namespace", ns.String(), "chunks", count)
		})
	}
	return res, true, strategy
}

func (r *Resolver) repositoryChain(ctx context.Context, owner, repo string) (Result, bool, string) {
	var (
		res   Result
		found bool
	)

	r.step("cache", func() {
		res, found = r.fromCache(ctx, owner, repo)
	})
	if found {
		return res, true, "cache"
	}

	r.step("static", func() {
		res, found = r.probeStatic(ctx, owner, repo)
	})
	if found {
		return res, true, "static"
	}

	if r.searcher != nil {
		r.step("code_search", func() {
			res, found = r.searchCode(ctx, owner, repo)
		})
		if found {
			return res, true, "code_search"
		}
	}

	for _, branch := range Branches {
		label := fmt.Sprintf("%s (%s branch)", defaultReadme, branch)
		res = Result{FileUsed: label}
		r.step("readme", func() {
			if content, ok := r.fetcher.FetchRaw(ctx, owner, repo, branch, readmeFile); ok {
				res.Content, found = content, true
			}
		})
		if found {
			return res, true, "readme"
		}
	}
	return res, false, "readme"
}

func (r *Resolver) fromCache(ctx context.Context, owner, repo string) (Result, bool) {
	entry, ok, err := r.cache.Get(ctx, owner, repo, llmsFile)
	if err != nil {
		r.logger.Warn("Path cache lookup failed", "owner", owner, "repo", repo, "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	content, ok := r.fetcher.FetchRaw(ctx, owner, repo, entry.Branch, entry.Path)
	if !ok {
		r.logger.Debug("Cached path no longer resolves", "owner", owner, "repo", repo, "path", entry.Path, "branch", entry.Branch)
		return Result{}, false
	}
	return Result{
		FileUsed: fmt.Sprintf("%s (%s branch, from cache)", entry.Path, entry.Branch),
		Content:  content,
	}, true
}

type probe struct {
	location string
	branch   string
	content  string
	ok       bool
}

// probeStatic fetches every location on every branch at once, then picks the
// first location in list order, main before master.
func (r *Resolver) probeStatic(ctx context.Context, owner, repo string) (Result, bool) {
	probes := make([]probe, 0, len(StaticLocations)*len(Branches))
	for _, location := range StaticLocations {
		for _, branch := range Branches {
			probes = append(probes, probe{location: location, branch: branch})
		}
	}

	var g errgroup.Group
	for i := range probes {
		p := &probes[i]
		g.Go(func() error {
			p.content, p.ok = r.fetchRaw(ctx, "static", owner, repo, p.branch, p.location)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range probes {
		if !p.ok {
			continue
		}
		r.remember(ctx, pathcache.Entry{Owner: owner, Repo: repo, Filename: llmsFile, Path: p.location, Branch: p.branch})
		return Result{
			FileUsed: fmt.Sprintf("%s (%s branch)", p.location, p.branch),
			Content:  p.content,
		}, true
	}
	return Result{}, false
}

// searchCode locates llms.txt through code search and fetches it from both
// branches at once, preferring main.
func (r *Resolver) searchCode(ctx context.Context, owner, repo string) (Result, bool) {
	path, ok := r.searcher.FindFile(ctx, owner, repo, llmsFile)
	if !ok {
		return Result{}, false
	}

	probes := make([]probe, len(Branches))
	var g errgroup.Group
	for i, branch := range Branches {
		p := &probes[i]
		p.branch = branch
		g.Go(func() error {
			p.content, p.ok = r.fetchRaw(ctx, "code_search", owner, repo, p.branch, path)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range probes {
		if !p.ok {
			continue
		}
		r.remember(ctx, pathcache.Entry{Owner: owner, Repo: repo, Filename: llmsFile, Path: path, Branch: p.branch})
		return Result{FileUsed: CodeSearchLabel, Content: p.content}, true
	}
	return Result{}, false
}

// resolveDefault maps the canonical host onto the pages domain and probes
// llms.txt, then readme.md.
func (r *Resolver) resolveDefault(ctx context.Context, loc identity.Location) (Result, bool) {
	mapped := strings.Replace(loc.Host, r.cfg.CanonicalHost, r.cfg.PagesDomain, 1)
	base := fmt.Sprintf("https://%s/%s", mapped, loc.Path)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	var (
		res   Result
		found bool
	)
	for _, file := range []string{llmsFile, defaultReadme} {
		r.step("default", func() {
			if content, ok := r.fetcher.FetchURL(ctx, base+file); ok {
				res, found = Result{FileUsed: file, Content: content}, true
			}
		})
		if found {
			return res, true
		}
	}
	return Result{}, false
}

func (r *Resolver) remember(ctx context.Context, entry pathcache.Entry) {
	if err := r.cache.Set(ctx, entry); err != nil {
		r.logger.Warn("Failed to cache documentation path",
			"owner", entry.Owner,
			"repo", entry.Repo,
			"path", entry.Path,
			"error", err)
	}
}

// fetchRaw is FetchRaw with fault recovery for use inside goroutines.
func (r *Resolver) fetchRaw(ctx context.Context, step, owner, repo, branch, path string) (content string, ok bool) {
	r.step(step, func() {
		content, ok = r.fetcher.FetchRaw(ctx, owner, repo, branch, path)
	})
	return content, ok
}

// step runs fn and recovers a panic so the chain can continue.
func (r *Resolver) step(name string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.IncStepFault(name)
			r.logger.Error("Documentation step failed", "step", name, "panic", fmt.Sprint(p))
		}
	}()
	fn()
}

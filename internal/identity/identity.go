// Package identity turns an inbound host name and URL path into the repository
// identity that names a documentation source. Parsing is pure: no I/O, no caching.
package identity

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidIdentity is returned when a repository-style host carries a path that
// does not decompose into an owner and a repository name.
var ErrInvalidIdentity = errors.New("invalid repository identity")

// Kind reports which identity shape is populated.
type Kind int

const (
	// KindUnknown means neither shape is populated (unrecognized host).
	KindUnknown Kind = iota
	// KindPages is a GitHub Pages project: Subdomain and Path.
	KindPages
	// KindRepository is a GitHub repository: Owner and Repo.
	KindRepository
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindPages:
		return "pages"
	case KindRepository:
		return "repository"
	default:
		return "unknown"
	}
}

// Identity is either {Subdomain, Path} or {Owner, Repo}, never a mix of both.
type Identity struct {
	Subdomain string
	Path      string
	Owner     string
	Repo      string
}

// Kind returns the populated shape of the identity.
func (id Identity) Kind() Kind {
	switch {
	case id.Owner != "" || id.Repo != "":
		return KindRepository
	case id.Subdomain != "" || id.Path != "":
		return KindPages
	default:
		return KindUnknown
	}
}

// String renders the identity for logs.
func (id Identity) String() string {
	switch id.Kind() {
	case KindRepository:
		return id.Owner + "/" + id.Repo
	case KindPages:
		return id.Subdomain + ".pages/" + id.Path
	default:
		return "{}"
	}
}

// Location is a parsed request: the inbound host, its normalized path, and the
// identity derived from them.
type Location struct {
	Host     string
	Path     string
	Identity Identity
}

// Hosts describes which inbound host names map to which identity shape.
type Hosts struct {
	// PagesSuffix marks a pages-style host, e.g. ".gitmcp.io" in "foo.gitmcp.io".
	PagesSuffix string
	// Canonical is the bare repository host, e.g. "gitmcp.io".
	Canonical string
	// Alternates are additional repository hosts, e.g. "git-mcp.vercel.app".
	Alternates []string
	// Preview matches ephemeral preview deployment hosts. May be nil.
	Preview *regexp.Regexp
}

// DefaultHosts returns the production host layout.
func DefaultHosts() Hosts {
	return Hosts{
		PagesSuffix: ".gitmcp.io",
		Canonical:   "gitmcp.io",
		Alternates:  []string{"git-mcp.vercel.app"},
		Preview:     regexp.MustCompile(`^git-mcp-git-.*-git-mcp\.vercel\.app$`),
	}
}

// Parser maps hosts and paths to identities.
type Parser struct {
	hosts Hosts
}

// NewParser creates a Parser for the given host layout.
func NewParser(hosts Hosts) *Parser {
	return &Parser{hosts: hosts}
}

// Hosts returns the host layout the parser was built with.
func (p *Parser) Hosts() Hosts {
	return p.hosts
}

// Parse resolves an inbound host and optional raw URL into a Location.
//
// Rules, first match wins:
//  1. host contains the pages suffix: {subdomain, path}
//  2. host is the canonical host, an alternate, or a preview host: {owner, repo}
//  3. otherwise: empty identity
func (p *Parser) Parse(host, rawURL string) (Location, error) {
	path, err := NormalizedPath(host, rawURL)
	if err != nil {
		return Location{}, err
	}

	loc := Location{Host: host, Path: path}

	if p.hosts.PagesSuffix != "" && strings.Contains(host, p.hosts.PagesSuffix) {
		subdomain := strings.Split(host, ".")[0]
		if subdomain == "" && path == "" {
			return Location{}, fmt.Errorf("%w: host %q has no subdomain or path", ErrInvalidIdentity, host)
		}
		loc.Identity = Identity{Subdomain: subdomain, Path: path}
		return loc, nil
	}

	if p.isRepositoryHost(host) {
		owner, repo, _ := strings.Cut(path, "/")
		// Anything after the second segment is ignored.
		repo, _, _ = strings.Cut(repo, "/")
		if owner == "" || repo == "" {
			return Location{}, fmt.Errorf("%w: expected {owner}/{repo}, got %q", ErrInvalidIdentity, path)
		}
		loc.Identity = Identity{Owner: owner, Repo: repo}
		return loc, nil
	}

	return loc, nil
}

func (p *Parser) isRepositoryHost(host string) bool {
	if host == p.hosts.Canonical {
		return true
	}
	for _, alt := range p.hosts.Alternates {
		if host == alt {
			return true
		}
	}
	return p.hosts.Preview != nil && p.hosts.Preview.MatchString(host)
}

// NormalizedPath extracts the URL path for a request and normalizes it: split on
// "/", drop empty segments, rejoin with "/".
//
// rawURL may be empty, a path ("/owner/repo"), an absolute URL
// ("https://gitmcp.io/owner/repo"), or a scheme-less URL ("gitmcp.io/owner/repo").
func NormalizedPath(host, rawURL string) (string, error) {
	scheme := "https"
	if strings.Contains(host, "localhost") {
		scheme = "http"
	}

	full := scheme + "://" + host
	switch {
	case rawURL == "":
	case strings.HasPrefix(rawURL, "/"):
		full = scheme + "://" + host + rawURL
	case strings.HasPrefix(rawURL, "http"):
		full = rawURL
	default:
		full = scheme + "://" + rawURL
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("%w: cannot parse url %q: %v", ErrInvalidIdentity, full, err)
	}

	return normalizePath(u.Path), nil
}

func normalizePath(p string) string {
	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}

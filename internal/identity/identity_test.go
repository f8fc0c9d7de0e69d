package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParse(t *testing.T) {
	parser := NewParser(DefaultHosts())

	tests := []struct {
		name     string
		host     string
		rawURL   string
		wantID   Identity
		wantPath string
		wantKind Kind
	}{
		{
			name:     "pages subdomain with path",
			host:     "foo.gitmcp.io",
			rawURL:   "/bar",
			wantID:   Identity{Subdomain: "foo", Path: "bar"},
			wantPath: "bar",
			wantKind: KindPages,
		},
		{
			name:     "pages subdomain with nested path and extra slashes",
			host:     "foo.gitmcp.io",
			rawURL:   "//bar///baz/",
			wantID:   Identity{Subdomain: "foo", Path: "bar/baz"},
			wantPath: "bar/baz",
			wantKind: KindPages,
		},
		{
			name:     "pages subdomain without path",
			host:     "foo.gitmcp.io",
			wantID:   Identity{Subdomain: "foo"},
			wantKind: KindPages,
		},
		{
			name:     "canonical repository host",
			host:     "gitmcp.io",
			rawURL:   "/octo/widget",
			wantID:   Identity{Owner: "octo", Repo: "widget"},
			wantPath: "octo/widget",
			wantKind: KindRepository,
		},
		{
			name:     "canonical host with absolute url",
			host:     "gitmcp.io",
			rawURL:   "https://gitmcp.io/octo/widget",
			wantID:   Identity{Owner: "octo", Repo: "widget"},
			wantPath: "octo/widget",
			wantKind: KindRepository,
		},
		{
			name:     "canonical host with scheme-less url",
			host:     "gitmcp.io",
			rawURL:   "gitmcp.io/octo/widget/",
			wantID:   Identity{Owner: "octo", Repo: "widget"},
			wantPath: "octo/widget",
			wantKind: KindRepository,
		},
		{
			name:     "extra path segments are ignored for the identity",
			host:     "gitmcp.io",
			rawURL:   "/octo/widget/tree/main",
			wantID:   Identity{Owner: "octo", Repo: "widget"},
			wantPath: "octo/widget/tree/main",
			wantKind: KindRepository,
		},
		{
			name:     "alternate deployment host",
			host:     "git-mcp.vercel.app",
			rawURL:   "/octo/widget",
			wantID:   Identity{Owner: "octo", Repo: "widget"},
			wantPath: "octo/widget",
			wantKind: KindRepository,
		},
		{
			name:     "preview deployment host",
			host:     "git-mcp-git-feature-x-git-mcp.vercel.app",
			rawURL:   "/octo/widget",
			wantID:   Identity{Owner: "octo", Repo: "widget"},
			wantPath: "octo/widget",
			wantKind: KindRepository,
		},
		{
			name:     "unknown host keeps the path but no identity",
			host:     "docs.example.com",
			rawURL:   "/guide",
			wantID:   Identity{},
			wantPath: "guide",
			wantKind: KindUnknown,
		},
		{
			name:     "unknown host without path",
			host:     "docs.example.com",
			wantID:   Identity{},
			wantKind: KindUnknown,
		},
		{
			name:     "localhost uses http and is unknown",
			host:     "localhost:5173",
			rawURL:   "/octo/widget",
			wantID:   Identity{},
			wantPath: "octo/widget",
			wantKind: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := parser.Parse(tt.host, tt.rawURL)
			if err != nil {
				t.Fatalf("Parse(%q, %q) unexpected error: %v", tt.host, tt.rawURL, err)
			}
			if loc.Identity != tt.wantID {
				t.Errorf("identity = %+v, want %+v", loc.Identity, tt.wantID)
			}
			if loc.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", loc.Path, tt.wantPath)
			}
			if loc.Host != tt.host {
				t.Errorf("host = %q, want %q", loc.Host, tt.host)
			}
			if got := loc.Identity.Kind(); got != tt.wantKind {
				t.Errorf("kind = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

func TestParseInvalidIdentity(t *testing.T) {
	parser := NewParser(DefaultHosts())

	tests := []struct {
		name   string
		host   string
		rawURL string
	}{
		{name: "repository host without path", host: "gitmcp.io"},
		{name: "repository host with owner only", host: "gitmcp.io", rawURL: "/octo"},
		{name: "alternate host with owner only", host: "git-mcp.vercel.app", rawURL: "/octo/"},
		{name: "pages marker with empty subdomain and path", host: ".gitmcp.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.host, tt.rawURL)
			if err == nil {
				t.Fatalf("Parse(%q, %q) expected error, got nil", tt.host, tt.rawURL)
			}
			if !errors.Is(err, ErrInvalidIdentity) {
				t.Errorf("expected ErrInvalidIdentity, got %v", err)
			}
		})
	}
}

func TestParseCustomHosts(t *testing.T) {
	parser := NewParser(Hosts{
		PagesSuffix: ".docs.internal",
		Canonical:   "docs.internal",
	})

	loc, err := parser.Parse("team.docs.internal", "/handbook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Identity != (Identity{Subdomain: "team", Path: "handbook"}) {
		t.Errorf("unexpected identity %+v", loc.Identity)
	}

	// No preview pattern configured: preview-looking hosts are unknown.
	loc, err = parser.Parse("git-mcp-git-x-git-mcp.vercel.app", "/octo/widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Identity.Kind() != KindUnknown {
		t.Errorf("expected unknown identity, got %+v", loc.Identity)
	}
}

func TestIdentityString(t *testing.T) {
	if got := (Identity{Owner: "octo", Repo: "widget"}).String(); got != "octo/widget" {
		t.Errorf("String() = %q", got)
	}
	if got := (Identity{}).String(); got != "{}" {
		t.Errorf("String() = %q", got)
	}
}

// TestPropertyNormalizedPathHasNoEmptySegments checks that path normalization never
// yields leading, trailing or doubled slashes, whatever the raw path looks like.
func TestPropertyNormalizedPathHasNoEmptySegments(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	segment := gen.RegexMatch(`[a-z0-9]{0,6}`)

	properties.Property("normalized path has no empty segments", prop.ForAll(
		func(segments []string) bool {
			raw := "/" + strings.Join(segments, "/")
			path, err := NormalizedPath("example.com", raw)
			if err != nil {
				return false
			}
			if path == "" {
				return true
			}
			for _, s := range strings.Split(path, "/") {
				if s == "" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(segment),
	))

	properties.Property("non-empty segments survive in order", prop.ForAll(
		func(segments []string) bool {
			var want []string
			for _, s := range segments {
				if s != "" {
					want = append(want, s)
				}
			}
			path, err := NormalizedPath("example.com", "/"+strings.Join(segments, "//"))
			if err != nil {
				return false
			}
			return path == strings.Join(want, "/")
		},
		gen.SliceOf(segment),
	))

	properties.TestingRun(t)
}

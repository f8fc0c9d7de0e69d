package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/vectorstore"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func results(chunks ...string) []vectorstore.SearchResult {
	out := make([]vectorstore.SearchResult, len(chunks))
	for i, c := range chunks {
		out[i] = vectorstore.SearchResult{Chunk: c, Score: 0.5}
	}
	return out
}

func TestFormatResultsEmpty(t *testing.T) {
	got := FormatResults(nil, "queues")
	want := "### Search Results for: \"queues\"\n\nNo results found."
	if got != want {
		t.Errorf("FormatResults() = %q, want %q", got, want)
	}
}

func TestFormatResultsSingleChunks(t *testing.T) {
	in := []vectorstore.SearchResult{
		{Chunk: "  ## Install\n\nRun go get.  ", Score: 0.876},
		{Chunk: "## Usage\n\nCall New.", Score: 0.5},
	}

	got := FormatResults(in, "install")
	want := "### Search Results for: \"install\"\n\n" +
		"#### Result 1 (Score: 0.88)\n\n## Install\n\nRun go get.\n\n" +
		"---\n\n" +
		"#### Result 2 (Score: 0.50)\n\n## Usage\n\nCall New.\n\n"
	if got != want {
		t.Errorf("FormatResults() =\n%q\nwant\n%q", got, want)
	}
}

// TestFormatResultsSplitsEntries verifies multi-entry chunks become one block
// per entry, each with the chunk's heading.
func TestFormatResultsSplitsEntries(t *testing.T) {
	chunk := "# Guides\n\n[Intro](https://x.dev/intro): Start here\n\n[Setup](https://x.dev/setup): Install it"

	got := FormatResults(results(chunk), "setup")
	want := "### Search Results for: \"setup\"\n\n" +
		"#### Result 1 (Score: 0.50)\n\n# Guides\n\n[Intro](https://x.dev/intro): Start here\n\n" +
		"---\n\n" +
		"#### Result 2 (Score: 0.50)\n\n# Guides\n\n[Setup](https://x.dev/setup): Install it\n\n"
	if got != want {
		t.Errorf("FormatResults() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatResultsEntriesWithoutHeading(t *testing.T) {
	chunk := "[A](https://x.dev/a): first\n\n[B](https://x.dev/b): second"

	got := FormatResults(results(chunk), "q")
	if strings.Count(got, "#### Result") != 2 {
		t.Fatalf("Expected two blocks, got %q", got)
	}
	if !strings.Contains(got, "#### Result 1 (Score: 0.50)\n\n[A](https://x.dev/a): first\n\n") {
		t.Errorf("Missing first entry block in %q", got)
	}
}

// TestFormatResultsDeduplicates verifies repeated entries are skipped and
// numbering counts emitted blocks only.
func TestFormatResultsDeduplicates(t *testing.T) {
	got := FormatResults(results(
		"[A](https://x.dev/a): first\n\n[B](https://x.dev/b): second",
		"[B](https://x.dev/b): second\n\n[C](https://x.dev/c): third",
		"plain chunk",
		"  plain chunk\n",
	), "q")

	if n := strings.Count(got, "[B](https://x.dev/b): second"); n != 1 {
		t.Errorf("Expected entry B once, got %d times", n)
	}
	if n := strings.Count(got, "plain chunk"); n != 1 {
		t.Errorf("Expected plain chunk once, got %d times", n)
	}
	for i := 1; i <= 4; i++ {
		if !strings.Contains(got, fmt.Sprintf("#### Result %d ", i)) {
			t.Errorf("Missing Result %d in %q", i, got)
		}
	}
	if strings.Contains(got, "#### Result 5 ") {
		t.Errorf("Numbering must count emitted blocks only: %q", got)
	}
	if strings.HasSuffix(got, "---\n\n") {
		t.Errorf("Separator after the last block: %q", got)
	}
}

func TestSplitEntries(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  []string
	}{
		{"no entries", "just prose", nil},
		{"one entry", "[A](u): a", []string{"[A](u): a"}},
		{
			name:  "entry description spans lines",
			chunk: "[A](u): line one\nline two\n\n[B](v): b",
			want:  []string{"[A](u): line one\nline two", "[B](v): b"},
		},
		{
			name:  "blank line without bracket stays in entry",
			chunk: "[A](u): a\n\nmore\n\n[B](v): b",
			want:  []string{"[A](u): a\n\nmore", "[B](v): b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitEntries(tt.chunk)
			if len(got) != len(tt.want) {
				t.Fatalf("splitEntries() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestPropertyFormatterNeverRepeats verifies the block count equals the number
// of distinct trimmed chunks and numbering is contiguous.
func TestPropertyFormatterNeverRepeats(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("one block per distinct chunk", prop.ForAll(
		func(chunks []string) bool {
			if len(chunks) == 0 {
				return true
			}
			distinct := make(map[string]struct{})
			for _, c := range chunks {
				distinct[strings.TrimSpace(c)] = struct{}{}
			}

			out := FormatResults(results(chunks...), "q")
			if strings.Count(out, "#### Result ") != len(distinct) {
				return false
			}
			for i := 1; i <= len(distinct); i++ {
				if !strings.Contains(out, fmt.Sprintf("#### Result %d (", i)) {
					return false
				}
			}
			return !strings.HasSuffix(out, "---\n\n")
		},
		gen.SliceOf(gen.OneConstOf("alpha", " alpha", "alpha\n", "beta", "gamma delta", "beta ")),
	))

	properties.TestingRun(t)
}

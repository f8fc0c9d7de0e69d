package parser

import (
	"strings"
	"testing"
)

// TestParseMarkdown_Sections tests splitting a document at top-level headings
func TestParseMarkdown_Sections(t *testing.T) {
	md := "# Widget\n\nWidget is small.\n\n## Install\n\n```sh\n# not a heading\ngo get widget\n```\n\n## Usage\n\nCall it.\n"

	doc := ParseMarkdown([]byte(md))

	if len(doc.Sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d: %+v", len(doc.Sections), doc.Sections)
	}

	want := []struct {
		heading string
		level   int
		prefix  string
		body    string
	}{
		{"Widget", 1, "# Widget\n\n", "\nWidget is small.\n\n"},
		{"Install", 2, "## Install\n\n```sh\n# not a heading", "\n```sh\n# not a heading\ngo get widget\n```\n\n"},
		{"Usage", 2, "## Usage\n\nCall it.", "\nCall it.\n"},
	}
	for i, w := range want {
		s := doc.Sections[i]
		if s.Heading != w.heading {
			t.Errorf("section %d: expected heading %q, got %q", i, w.heading, s.Heading)
		}
		if s.Level != w.level {
			t.Errorf("section %d: expected level %d, got %d", i, w.level, s.Level)
		}
		if !strings.HasPrefix(s.Content, w.prefix) {
			t.Errorf("section %d: expected content prefix %q, got %q", i, w.prefix, s.Content)
		}
		if s.Body != w.body {
			t.Errorf("section %d: expected body %q, got %q", i, w.body, s.Body)
		}
	}

	if joined(doc) != md {
		t.Errorf("Expected sections to reproduce the input")
	}
}

// TestParseMarkdown_Preamble tests content before the first heading
func TestParseMarkdown_Preamble(t *testing.T) {
	md := "Intro text.\n\n# Title\n\nBody.\n"

	doc := ParseMarkdown([]byte(md))

	if len(doc.Sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "" || doc.Sections[0].Level != 0 {
		t.Errorf("Expected untitled preamble, got %+v", doc.Sections[0])
	}
	if doc.Sections[0].Content != "Intro text.\n\n" {
		t.Errorf("Unexpected preamble %q", doc.Sections[0].Content)
	}
	if joined(doc) != md {
		t.Errorf("Expected sections to reproduce the input")
	}
}

// TestParseMarkdown_BlankPreamble tests that leading blank lines join the first section
func TestParseMarkdown_BlankPreamble(t *testing.T) {
	md := "\n\n# Title\n\nBody.\n"

	doc := ParseMarkdown([]byte(md))

	if len(doc.Sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Content != md {
		t.Errorf("Expected whole input in the single section, got %q", doc.Sections[0].Content)
	}
}

// TestParseMarkdown_NoHeadings tests a document without any heading
func TestParseMarkdown_NoHeadings(t *testing.T) {
	md := "[Guide](https://example.com/guide): How to start\n\n[API](https://example.com/api): Reference\n"

	doc := ParseMarkdown([]byte(md))

	if len(doc.Sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Content != md {
		t.Errorf("Expected raw content to be preserved")
	}
	if doc.Sections[0].Body != md {
		t.Errorf("Expected body to equal content for an untitled section")
	}
}

// TestParseMarkdown_Empty tests empty and blank documents
func TestParseMarkdown_Empty(t *testing.T) {
	for _, md := range []string{"", "  \n\n"} {
		doc := ParseMarkdown([]byte(md))
		if len(doc.Sections) != 0 {
			t.Errorf("ParseMarkdown(%q): expected no sections, got %d", md, len(doc.Sections))
		}
	}
}

// TestParseMarkdown_SetextAndFormattedHeadings tests heading text extraction
func TestParseMarkdown_SetextAndFormattedHeadings(t *testing.T) {
	md := "Getting *Started*\n=================\n\nText.\n\n## The `run` [command](https://x.y)\n\nMore.\n"

	doc := ParseMarkdown([]byte(md))

	if len(doc.Sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "Getting Started" {
		t.Errorf("Unexpected setext heading %q", doc.Sections[0].Heading)
	}
	if doc.Sections[0].Body != "\nText.\n\n" {
		t.Errorf("Expected setext underline excluded from body, got %q", doc.Sections[0].Body)
	}
	if doc.Sections[1].Heading != "The run command" {
		t.Errorf("Unexpected formatted heading %q", doc.Sections[1].Heading)
	}
	if joined(doc) != md {
		t.Errorf("Expected sections to reproduce the input")
	}
}

// joined concatenates the raw content of every section.
func joined(doc *Document) string {
	var b strings.Builder
	for _, s := range doc.Sections {
		b.WriteString(s.Content)
	}
	return b.String()
}

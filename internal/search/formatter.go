package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/vectorstore"
)

var (
	// entryStart matches the "[Title](URL):" head of an llms.txt style entry.
	entryStart = regexp.MustCompile(`(?s)\[.*?\]\(.*?\):`)
	// leadingHeading matches a chunk's first heading line when a blank line follows it.
	leadingHeading = regexp.MustCompile(`^(#+\s+.*?)\n\n`)
)

// entrySeparator ends an entry: a blank line followed by the next "[".
const entrySeparator = "\n\n["

// Header returns the report heading for query.
func Header(query string) string {
	return "### Search Results for: \"" + query + "\"\n\n"
}

// FormatResults renders ranked chunks as a Markdown report. Chunks made of
// several back-to-back "[Title](URL): Description" entries are split into one
// block per entry, each carrying the chunk's leading heading. Blocks whose
// trimmed text was already emitted are skipped.
func FormatResults(results []vectorstore.SearchResult, query string) string {
	var out strings.Builder
	out.WriteString(Header(query))

	if len(results) == 0 {
		out.WriteString("No results found.")
		return out.String()
	}

	seen := make(map[string]struct{})
	var blocks []string

	emit := func(score float64, heading, text string) {
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		blocks = append(blocks, fmt.Sprintf("#### Result %d (Score: %.2f)\n\n%s%s\n\n", len(blocks)+1, score, heading, text))
	}

	for _, result := range results {
		entries := splitEntries(result.Chunk)
		if len(entries) <= 1 {
			emit(result.Score, "", strings.TrimSpace(result.Chunk))
			continue
		}

		heading := ""
		if m := leadingHeading.FindStringSubmatch(result.Chunk); m != nil {
			heading = m[1] + "\n\n"
		}
		for _, entry := range entries {
			emit(result.Score, heading, strings.TrimSpace(entry))
		}
	}

	out.WriteString(strings.Join(blocks, "---\n\n"))
	return out.String()
}

// splitEntries returns every "[Title](URL): Description" entry in chunk. An
// entry runs until the next blank line that is followed by "[", or the end of
// the chunk.
func splitEntries(chunk string) []string {
	var entries []string
	pos := 0
	for pos < len(chunk) {
		loc := entryStart.FindStringIndex(chunk[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		body := pos + loc[1]
		for body < len(chunk) && isSpace(chunk[body]) {
			body++
		}

		end := len(chunk)
		if i := strings.Index(chunk[body:], entrySeparator); i >= 0 {
			end = body + i
		}
		entries = append(entries, chunk[start:end])
		pos = end
	}
	return entries
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

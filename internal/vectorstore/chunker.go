package vectorstore

import (
	"strings"

	"github.com/j4ng5y/repo-docs-mcp-server/internal/parser"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters when a
// single paragraph has to be cut.
const DefaultChunkOverlap = 200

// Chunker splits Markdown at headings, then packs paragraphs into chunks of
// at most chunkSize characters.
type Chunker struct {
	chunkSize int
	overlap   int
}

// ChunkOption configures the chunker.
type ChunkOption func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) ChunkOption {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between hard-cut chunks in characters.
func WithOverlap(overlap int) ChunkOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...ChunkOption) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Split returns the chunks of text in document order. Every chunk of a
// section that had to be split starts with that section's heading.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	doc := parser.ParseMarkdown([]byte(text))

	var chunks []string
	for _, section := range doc.Sections {
		body := strings.TrimSpace(section.Content)
		if body == "" {
			continue
		}
		if len(body) <= c.chunkSize {
			chunks = append(chunks, body)
			continue
		}
		chunks = append(chunks, c.splitSection(section)...)
	}
	return chunks
}

// splitSection splits an oversized section. Each chunk is prefixed with the
// heading in ATX form, so setext headings are repeated as "# Title".
func (c *Chunker) splitSection(section parser.Section) []string {
	prefix := ""
	body := strings.TrimSpace(section.Content)
	if section.Level > 0 && section.Heading != "" {
		prefix = strings.Repeat("#", section.Level) + " " + section.Heading + "\n\n"
		body = strings.TrimSpace(section.Body)
	}

	budget := c.chunkSize - len(prefix)
	if budget < c.chunkSize/2 {
		// Pathologically long heading: do not repeat it.
		budget = c.chunkSize
		if prefix != "" {
			body = strings.TrimSpace(prefix) + "\n\n" + body
			prefix = ""
		}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, prefix+cur.String())
			cur.Reset()
		}
	}

	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > budget {
			flush()
			for _, piece := range hardSplit(para, budget, c.overlap) {
				chunks = append(chunks, prefix+piece)
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(para) > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()

	return chunks
}

// hardSplit cuts s into windows of size runes advancing by size-overlap.
func hardSplit(s string, size, overlap int) []string {
	runes := []rune(s)
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}

package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ParseMarkdown parses markdown content and splits it at top-level headings.
// Concatenating the sections' Content reproduces the input byte for byte.
func ParseMarkdown(content []byte) *Document {
	doc := markdown.Parser().Parse(text.NewReader(content))

	type cut struct {
		offset  int
		body    int
		heading string
		level   int
	}
	var cuts []cut

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		cuts = append(cuts, cut{
			offset:  lineStart(content, heading.Lines().At(0).Start),
			body:    headingEnd(content, heading),
			heading: strings.TrimSpace(extractTextFromNode(heading, content)),
			level:   heading.Level,
		})
	}

	if len(cuts) > 0 && strings.TrimSpace(string(content[:cuts[0].offset])) == "" {
		// Whitespace-only preamble belongs to the first section.
		cuts[0].offset = 0
	}

	var sections []Section
	switch {
	case len(cuts) == 0:
		if strings.TrimSpace(string(content)) != "" {
			sections = append(sections, Section{Content: string(content), Body: string(content)})
		}
	case cuts[0].offset > 0:
		preamble := string(content[:cuts[0].offset])
		sections = append(sections, Section{Content: preamble, Body: preamble})
	}

	for i, c := range cuts {
		end := len(content)
		if i+1 < len(cuts) {
			end = cuts[i+1].offset
		}
		sections = append(sections, Section{
			Heading: c.heading,
			Level:   c.level,
			Content: string(content[c.offset:end]),
			Body:    string(content[min(c.body, end):end]),
		})
	}

	return &Document{Sections: sections}
}

// lineStart walks back from offset to the beginning of its line, so the "#"
// markers of an ATX heading are included.
func lineStart(content []byte, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	i := bytes.LastIndexByte(content[:offset], '\n')
	return i + 1
}

// headingEnd returns the offset just past a heading's last line. A setext
// heading also owns its "===" or "---" underline.
func headingEnd(content []byte, heading *ast.Heading) int {
	last := heading.Lines().At(heading.Lines().Len() - 1)
	end := lineEnd(content, max(last.Stop-1, last.Start))
	if bytes.HasPrefix(bytes.TrimLeft(content[lineStart(content, last.Start):], " "), []byte("#")) {
		return end
	}
	return lineEnd(content, end)
}

// lineEnd returns the offset just past the newline ending offset's line.
func lineEnd(content []byte, offset int) int {
	if offset >= len(content) {
		return len(content)
	}
	if i := bytes.IndexByte(content[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(content)
}

// extractTextFromNode extracts plain text from an AST node and its children
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for walker := node.FirstChild(); walker != nil; walker = walker.NextSibling() {
		switch n := walker.(type) {
		case *ast.Text:
			segment := n.Segment
			if segment.Start < len(source) && segment.Stop <= len(source) {
				buf.Write(segment.Value(source))
			}
			if n.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.CodeSpan:
			buf.WriteString(extractTextFromNode(n, source))
		case *ast.Link:
			buf.WriteString(extractTextFromNode(n, source))
		case *ast.Emphasis:
			buf.WriteString(extractTextFromNode(n, source))
		}
	}
	return buf.String()
}

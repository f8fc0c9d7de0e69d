// Package parser splits Markdown documentation into heading-delimited sections
// while keeping the unmodified Markdown text of every section intact.
package parser

// Document represents a parsed Markdown file
type Document struct {
	Sections []Section
}

// Section is a heading plus everything up to the next top-level heading.
// Content is the raw Markdown slice, heading line included, and Body is the
// part of Content after the heading. The preamble before the first heading has
// Level 0, no Heading, and Body equal to Content.
type Section struct {
	Heading string
	Content string
	Body    string
	Level   int
}

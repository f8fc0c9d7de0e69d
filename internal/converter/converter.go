// Package converter turns documentation landing pages into Markdown.
package converter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

// ErrEmptyInput is returned when there is nothing to convert.
var ErrEmptyInput = errors.New("empty HTML input")

// contentSelectors are tried in order; the first match is converted.
var contentSelectors = []string{"main", "article", `[role="main"]`, "body"}

// noise is removed before conversion.
const noise = "script, style, noscript, template, nav, header, footer, aside, svg"

// Converter wraps html-to-markdown to convert HTML to Markdown.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert extracts the main content of an HTML page and returns it as Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyInput
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noise).Remove()

	fragment := ""
	for _, sel := range contentSelectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		fragment, err = goquery.OuterHtml(found)
		if err != nil {
			return "", fmt.Errorf("failed to render %s: %w", sel, err)
		}
		break
	}
	if fragment == "" {
		// Fragment without a body, e.g. a bare <p>.
		fragment, err = doc.Html()
		if err != nil {
			return "", fmt.Errorf("failed to render document: %w", err)
		}
	}

	md, err := c.conv.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}

	md = strings.TrimSpace(md)
	if md == "" {
		return "", ErrEmptyInput
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}

	return md, nil
}

package identity

import "strings"

const defaultToolDescription = "Fetch documentation for the current repository."

// ToolName generates the fetch tool name for a bound location, e.g.
// fetch_octo_widget_documentation or fetch_foo_documentation.
func ToolName(loc Location) string {
	return toolName("fetch", loc)
}

// SearchToolName generates the search tool name for a bound location.
func SearchToolName(loc Location) string {
	return toolName("search", loc)
}

func toolName(verb string, loc Location) string {
	id := loc.Identity
	switch id.Kind() {
	case KindPages:
		if id.Subdomain != "" {
			return verb + "_" + sanitizeToolPart(id.Subdomain) + "_documentation"
		}
	case KindRepository:
		return verb + "_" + sanitizeToolPart(id.Owner) + "_" + sanitizeToolPart(id.Repo) + "_documentation"
	}
	return verb + "_documentation"
}

// ToolDescription generates a human readable description of the fetch tool.
func ToolDescription(loc Location) string {
	id := loc.Identity
	switch id.Kind() {
	case KindPages:
		return "Fetch documentation from the " + id.Subdomain + "/" + id.Path + " GitHub Pages."
	case KindRepository:
		return "Fetch documentation from GitHub repository: " + id.Owner + "/" + id.Repo + "."
	default:
		return defaultToolDescription
	}
}

// MCP tool names are limited to [a-zA-Z0-9_-].
func sanitizeToolPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

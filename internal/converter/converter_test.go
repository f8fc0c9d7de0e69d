package converter

import (
	"errors"
	"strings"
	"testing"
)

func TestConvertPrefersMainContent(t *testing.T) {
	html := `<!doctype html>
<html>
<head><title>Widget Docs</title><style>body{color:red}</style></head>
<body>
<nav><a href="/other">Navigation link</a></nav>
<main>
<h1>Widget</h1>
<p>Widget is a <strong>small</strong> library.</p>
<ul><li>fast</li><li>tiny</li></ul>
</main>
<footer>Copyright</footer>
<script>alert("x")</script>
</body>
</html>`

	md, err := NewConverter().Convert(html)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	for _, want := range []string{"# Widget", "**small**", "- fast", "- tiny"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in output:\n%s", want, md)
		}
	}
	for _, unwanted := range []string{"Navigation link", "Copyright", "alert", "color:red"} {
		if strings.Contains(md, unwanted) {
			t.Errorf("did not expect %q in output:\n%s", unwanted, md)
		}
	}
}

func TestConvertAddsTitleWhenNoHeading(t *testing.T) {
	html := `<html><head><title>Widget</title></head><body><p>Hello there.</p></body></html>`

	md, err := NewConverter().Convert(html)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if !strings.HasPrefix(md, "# Widget\n\n") {
		t.Errorf("expected title heading prefix, got:\n%s", md)
	}
	if !strings.Contains(md, "Hello there.") {
		t.Errorf("expected body text, got:\n%s", md)
	}
}

func TestConvertTable(t *testing.T) {
	html := `<body><article><table><thead><tr><th>Flag</th><th>Meaning</th></tr></thead>
<tbody><tr><td>-v</td><td>verbose</td></tr></tbody></table></article></body>`

	md, err := NewConverter().Convert(html)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if !strings.Contains(md, "| Flag") || !strings.Contains(md, "verbose") {
		t.Errorf("expected markdown table, got:\n%s", md)
	}
}

func TestConvertEmpty(t *testing.T) {
	tests := []string{"", "   \n", "<html><body><script>x()</script></body></html>"}
	for _, html := range tests {
		if _, err := NewConverter().Convert(html); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Convert(%q) expected ErrEmptyInput, got %v", html, err)
		}
	}
}

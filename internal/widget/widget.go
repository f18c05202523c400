// ABOUTME: Self-contained demo widget HTML rendering from embedded assets
// ABOUTME: Inlines the prebuilt JS and CSS bundle so the result needs no asset server

package widget

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
)

//go:embed dist
var distFS embed.FS

// Fallbacks used when an embedded asset is missing, matching the behavior
// expected by clients: the page still renders, the console notes the gap.
const (
	fallbackJS  = "console.error('widget js missing');"
	fallbackCSS = ""
)

// PageData supplies the per-demo values rendered into the widget page.
type PageData struct {
	DemoName string
	// TemplateName and DescriptionMarkdown are optional; when present a
	// header section is rendered above the widget mount point.
	TemplateName        string
	DescriptionMarkdown string
}

// Renderer assembles self-contained widget HTML documents.
type Renderer struct {
	js     string
	css    string
	logger *slog.Logger
}

// NewRenderer loads the embedded widget bundle. Missing assets degrade to
// fallbacks rather than failing; a widget without styling still works.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "widget")

	js := fallbackJS
	if data, err := distFS.ReadFile("dist/index.js"); err == nil {
		js = string(data)
	} else {
		logger.Warn("widget js bundle missing, using fallback", "error", err)
	}

	css := fallbackCSS
	if data, err := distFS.ReadFile("dist/style.css"); err == nil {
		css = string(data)
	} else {
		logger.Warn("widget css bundle missing, using fallback", "error", err)
	}

	return &Renderer{js: js, css: css, logger: logger}
}

// Render produces a single self-contained HTML document with the bundle
// inlined. The template description is markdown, rendered to HTML; demo and
// template names are escaped.
func (r *Renderer) Render(data PageData) string {
	var b strings.Builder
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8"/>`)
	b.WriteString(`<meta name="viewport" content="width=device-width,initial-scale=1"/>`)
	if data.DemoName != "" {
		fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(data.DemoName))
	}
	fmt.Fprintf(&b, "<style>%s</style></head><body>", r.css)

	if data.TemplateName != "" || data.DescriptionMarkdown != "" {
		b.WriteString(`<header class="widget-header">`)
		if data.TemplateName != "" {
			fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(data.TemplateName))
		}
		if data.DescriptionMarkdown != "" {
			b.WriteString(r.renderMarkdown(data.DescriptionMarkdown))
		}
		b.WriteString(`</header>`)
	}

	fmt.Fprintf(&b, `<div id="root"></div><script>%s</script></body></html>`, r.js)
	return b.String()
}

func (r *Renderer) renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		r.logger.Error("failed to convert markdown", "error", err)
		return "<p>Failed to render description.</p>"
	}
	return buf.String()
}

package publipostage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown converts Markdown template bodies to HTML fragments.
// GFM covers the tables and task lists users paste from notes; highlighting
// emits CSS classes so the document stylesheet stays in control.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
			),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// NormalizeTemplate converts a Markdown-format template to its HTML form.
// HTML-format templates (the Quill editor default) pass through unchanged.
// Placeholders survive conversion: {{name}} is plain text to Markdown.
func NormalizeTemplate(ctx context.Context, tpl Template) (Template, error) {
	if !strings.EqualFold(tpl.Format, FormatMarkdown) {
		return tpl, nil
	}

	if err := ctx.Err(); err != nil {
		return Template{}, err
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(tpl.Body), &buf); err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrMarkdownConversion, err)
	}

	return Template{
		Body:   buf.String(),
		CSS:    tpl.CSS,
		Format: FormatHTML,
	}, nil
}

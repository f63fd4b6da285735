// Package renderer formats books as markdown reports.
//
// Reports are text/template files embedded from templates/. They produce
// GitHub flavored markdown, printed as is, through glamour, or converted to
// HTML.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var files embed.FS

// reports holds every template, named after its file.
var reports = template.Must(template.New("").Funcs(template.FuncMap{
	"indent": func(depth int) string { return strings.Repeat("&nbsp;&nbsp;", depth) },
	"join":   strings.Join,
}).ParseFS(files, "templates/*.md"))

// render executes the report template name.md. Failures are reported in the
// output itself.
func render(name string, data any) string {
	var b strings.Builder
	if err := reports.ExecuteTemplate(&b, name+".md", data); err != nil {
		return fmt.Sprintf("cannot render %s: %v\n", name, err)
	}
	return b.String()
}

// HTML converts a markdown report to HTML, tables included.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New(goldmark.WithExtensions(extension.Table)).Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("converting report to HTML: %w", err)
	}
	return buf.String(), nil
}

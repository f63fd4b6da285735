// Package docs holds the documentation topics shown by 'bk topic'.
//
// Each topic is an embedded markdown file. Its name is the file name without
// extension and its title is the first heading of the file.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Index is the topic shown when none is asked for. It lists the others.
const Index = "readme"

// All expands to every topic but the index.
const All = "*"

//go:embed *.md
var files embed.FS

// Topic is one documentation page.
type Topic struct {
	Name    string
	Title   string
	Content string
}

// Lookup returns the topic called name.
func Lookup(name string) (Topic, error) {
	content, err := files.ReadFile(name + ".md")
	if err != nil {
		return Topic{}, fmt.Errorf("no topic %q, try one of: %s", name, strings.Join(Names(), ", "))
	}
	return Topic{Name: name, Title: title(content), Content: string(content)}, nil
}

// Names returns the sorted names of the topics, the index excluded.
func Names() []string {
	var names []string
	entries, _ := fs.ReadDir(files, ".")
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".md")
		if ok && name != Index {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Render concatenates the content of the named topics. The All name stands
// for every topic.
func Render(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		expanded := []string{name}
		if name == All {
			expanded = Names()
		}
		for _, n := range expanded {
			t, err := Lookup(n)
			if err != nil {
				return "", err
			}
			b.WriteString(t.Content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// title returns the text of the first heading, or "".
func title(content []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(content))
	var found string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(content))
			}
		}
		found = b.String()
		return ast.WalkStop, nil
	})
	return found
}

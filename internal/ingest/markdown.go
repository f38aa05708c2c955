package ingest

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// markdownText renders markdown as plain text in the shape the extractor
// expects: headings on their own line, blocks separated by a blank line and
// list items prefixed with "- " or "N. ".
func markdownText(source string) string {
	src := []byte(source)
	root := markdown.Parser().Parse(text.NewReader(src))

	r := &plainRenderer{src: src}
	r.block(root)
	return strings.TrimSpace(r.out.String())
}

type plainRenderer struct {
	src []byte
	out strings.Builder
}

func (r *plainRenderer) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Document, *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c)
		}
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		r.out.WriteString(r.inline(n))
		r.out.WriteString("\n\n")
	case *ast.List:
		r.list(n, "")
		r.out.WriteString("\n")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			r.out.Write(seg.Value(r.src))
		}
		r.out.WriteString("\n")
	}
}

func (r *plainRenderer) list(l *ast.List, indent string) {
	number := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", number)
			number++
		}

		var parts []string
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				parts = append(parts, r.inline(c))
			case *ast.List:
				nested = append(nested, c)
			}
		}

		r.out.WriteString(indent + marker + strings.Join(parts, " ") + "\n")
		for _, sub := range nested {
			r.list(sub, indent+"  ")
		}
	}
}

func (r *plainRenderer) inline(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(r.src))
			switch {
			case c.HardLineBreak():
				b.WriteByte('\n')
			case c.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.Label(r.src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

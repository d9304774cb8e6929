// Package markdown renders item text written in Markdown as plain console text.
package markdown

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var parser = goldmark.New().Parser()

// Render converts Markdown to console text. Emphasis markers are dropped,
// code blocks are indented, links keep their destination in parentheses.
func Render(source string) string {
	src := []byte(source)
	doc := parser.Parse(text.NewReader(src))
	r := &renderer{src: src}
	return strings.Join(r.block(doc), "\n")
}

type renderer struct {
	src []byte
}

func (r *renderer) block(n ast.Node) []string {
	switch n := n.(type) {
	case *ast.Document:
		return r.children(n, true)
	case *ast.Paragraph, *ast.TextBlock:
		return strings.Split(r.inline(n), "\n")
	case *ast.Heading:
		title := r.inline(n)
		switch n.Level {
		case 1:
			return []string{title, strings.Repeat("=", utf8.RuneCountInString(title))}
		case 2:
			return []string{title, strings.Repeat("-", utf8.RuneCountInString(title))}
		}
		return []string{title}
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		lines := make([]string, 0, n.Lines().Len())
		indent := "    "
		if _, ok := n.(*ast.HTMLBlock); ok {
			indent = ""
		}
		for i := 0; i < n.Lines().Len(); i++ {
			segment := n.Lines().At(i)
			lines = append(lines, indent+strings.TrimRight(string(segment.Value(r.src)), "\r\n"))
		}
		return lines
	case *ast.List:
		var lines []string
		number := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if n.IsOrdered() {
				marker = fmt.Sprintf("%d. ", number)
				number++
			}
			pad := strings.Repeat(" ", len(marker))
			for i, line := range r.children(item, !n.IsTight) {
				switch {
				case i == 0:
					lines = append(lines, marker+line)
				case line == "":
					lines = append(lines, "")
				default:
					lines = append(lines, pad+line)
				}
			}
			if !n.IsTight && item.NextSibling() != nil {
				lines = append(lines, "")
			}
		}
		return lines
	case *ast.Blockquote:
		lines := r.children(n, true)
		for i, line := range lines {
			lines[i] = strings.TrimRight("> "+line, " ")
		}
		return lines
	case *ast.ThematicBreak:
		return []string{"----"}
	}
	return r.children(n, true)
}

// children renders the block children of n, optionally separated by blank lines.
func (r *renderer) children(n ast.Node, spaced bool) []string {
	var lines []string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if spaced && len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, r.block(child)...)
	}
	return lines
}

func (r *renderer) inline(n ast.Node) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(r.src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.CodeSpan:
			b.WriteString("`" + r.inline(c) + "`")
		case *ast.Link:
			label, destination := r.inline(c), string(c.Destination)
			b.WriteString(label)
			if destination != "" && destination != label {
				b.WriteString(" (" + destination + ")")
			}
		case *ast.AutoLink:
			b.Write(c.URL(r.src))
		case *ast.Image:
			b.WriteString("[image: " + r.inline(c) + "]")
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				segment := c.Segments.At(i)
				b.Write(segment.Value(r.src))
			}
		default:
			b.WriteString(r.inline(c))
		}
	}
	return b.String()
}

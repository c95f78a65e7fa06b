package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/dgallion1/cardgest/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// "#" and "##" are both section boundaries; deeper headings are body text.
// The separator also accepts Unicode spaces such as U+3000 and U+00A0.
var markdownHeading = regexp.MustCompile(`^(#{1,2})[\s\p{Z}\x{85}]+(.+)$`)

func splitMarkdown(document string) []doctree.Section {
	var (
		sections []doctree.Section
		current  *doctree.Section
		body     []string
	)

	flush := func() {
		if current != nil {
			current.Body = strings.Join(body, "\n")
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(document, "\n") {
		m := markdownHeading.FindStringSubmatch(line)
		if m == nil {
			// Text before the first heading belongs to no section.
			if current != nil {
				body = append(body, line)
			}
			continue
		}
		flush()
		current = &doctree.Section{Heading: m[2], Level: len(m[1])}
		body = nil
	}
	flush()

	return sections
}

// MarkdownText renders Markdown as plain text. Inline markup is dropped, code
// blocks are kept verbatim, and top-level blocks are separated by a blank line.
func MarkdownText(src string) string {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := blockText(n, source); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func blockText(n ast.Node, src []byte) string {
	switch n.Kind() {
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimRight(buf.String(), "\n")
	case ast.KindThematicBreak, ast.KindHTMLBlock:
		return ""
	}

	if first := n.FirstChild(); first != nil && first.Type() == ast.TypeInline {
		return strings.TrimSpace(inlineText(n, src))
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(src))
		case *ast.RawHTML:
			// Inline tags carry no text of their own.
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

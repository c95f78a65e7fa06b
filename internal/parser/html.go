package parser

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/cardgest/internal/doctree"
	"golang.org/x/net/html"
)

var errNoHeadings = errors.New("no h1 or h2 elements")

// splitHTML returns one section per h1/h2 element. A heading's body is the
// text of the siblings that follow it, up to the next h1/h2 sibling.
func splitHTML(r io.Reader) ([]doctree.Section, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var headings []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if headingLevel(n) > 0 {
			headings = append(headings, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	if len(headings) == 0 {
		return nil, errNoHeadings
	}

	sections := make([]doctree.Section, 0, len(headings))
	for _, h := range headings {
		var parts []string
		for sib := h.NextSibling; sib != nil; sib = sib.NextSibling {
			if headingLevel(sib) > 0 {
				break
			}
			switch sib.Type {
			case html.TextNode:
				parts = append(parts, sib.Data)
			case html.ElementNode:
				parts = append(parts, flatText(sib))
			}
		}
		sections = append(sections, doctree.Section{
			Heading: strings.TrimSpace(flatText(h)),
			Body:    strings.Join(parts, "\n"),
			Level:   headingLevel(h),
		})
	}
	return sections, nil
}

func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.Data {
	case "h1":
		return 1
	case "h2":
		return 2
	}
	return 0
}

// flatText concatenates every text node under n, skipping script and style.
func flatText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// PlainText strips markup from an HTML fragment. Block elements end with a
// line break so paragraphs do not run together. If the input cannot be
// parsed it is returned unchanged.
func PlainText(htmlText string) string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return htmlText
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				buf.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			buf.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(blankRuns.ReplaceAllString(buf.String(), "\n\n"))
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "tr", "blockquote", "pre", "ul", "ol", "table",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

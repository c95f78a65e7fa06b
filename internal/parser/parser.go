package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/cardgest/internal/doctree"
)

// FallbackHeading titles the single section returned when an HTML document
// cannot be split at its headings.
const FallbackHeading = "全文"

// Split breaks a document into sections at level-1 and level-2 headings.
// Documents containing <h1 or <h2 are split on the HTML element tree; all
// others are split line by line on Markdown "#" and "##" headings.
func Split(document string) []doctree.Section {
	if !hasHTMLHeadings(document) {
		return splitMarkdown(document)
	}
	sections, err := splitHTML(strings.NewReader(document))
	if err != nil {
		return []doctree.Section{{Heading: FallbackHeading, Body: document}}
	}
	return sections
}

func hasHTMLHeadings(s string) bool {
	return strings.Contains(s, "<h1") || strings.Contains(s, "<h2")
}

// LooksLikeHTML reports whether text probably carries markup that should be
// flattened before it is shown to a language model.
func LooksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}

// Loader reads a document file into the text form Split understands.
type Loader interface {
	Load(r io.Reader) (string, error)
}

// SupportedExtensions lists file extensions that can be loaded from disk.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate loader for a filename.
func ForFile(filename string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".markdown", ".html", ".htm":
		return &TextLoader{}, nil
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// LoadFile reads the document at path using the loader for its extension.
func LoadFile(path string) (string, error) {
	l, err := ForFile(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	text, err := l.Load(f)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

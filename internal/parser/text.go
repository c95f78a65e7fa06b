package parser

import (
	"fmt"
	"io"
)

// maxTextBytes bounds how much of a plain document is read into memory.
const maxTextBytes = 16 << 20

// TextLoader reads Markdown, HTML and plain text files as-is.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTextBytes+1))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if len(data) > maxTextBytes {
		return "", fmt.Errorf("document exceeds %d bytes", maxTextBytes)
	}
	return string(data), nil
}

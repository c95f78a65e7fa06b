package llm

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough token count for logging prompt sizes. Han
// characters count as one token each; other text uses ~1.33 tokens per word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	han := 0
	rest := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Han, r) {
			han++
			return ' '
		}
		return r
	}, text)

	tokens := han + int(float64(len(strings.Fields(rest)))*1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

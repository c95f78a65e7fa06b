package cards

import (
	"context"
	"fmt"
)

// Completer sends one system+user exchange to a language model and returns
// the reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Generator turns note text into study cards with a single model call.
type Generator struct {
	LLM        Completer
	Count      int    // Cards requested; 0 lets the model decide.
	Difficulty string // Free-form label, e.g. "适中".
}

// Result holds the parsed cards along with the exchange that produced them.
type Result struct {
	Pairs  []QAPair
	Prompt string
	Raw    string
}

// Generate builds the prompt for content, calls the model once and parses its
// reply. A reply without any Q:/A: markers yields an empty Pairs slice.
func (g *Generator) Generate(ctx context.Context, content string) (*Result, error) {
	prompt := BuildPrompt(content, g.Count, g.Difficulty)
	raw, err := g.LLM.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}
	return &Result{
		Pairs:  Parse(raw),
		Prompt: prompt,
		Raw:    raw,
	}, nil
}

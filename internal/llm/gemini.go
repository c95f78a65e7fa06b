package llm

import (
	"context"
	"fmt"
	"time"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float64
	maxTokens   int
	stats       *Stats
}

func NewGeminiClient(ctx context.Context, cfg Config, stats *Stats) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		cli:         cli,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		stats:       stats,
	}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, system, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { g.stats.Observe(start, err) }()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(g.temperature)),
		MaxOutputTokens:   int32(g.maxTokens),
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text = resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from %s", g.model)
	}
	return text, nil
}

func (g *GeminiClient) Model() string { return g.model }

func (g *GeminiClient) Stats() *Stats { return g.stats }

func (g *GeminiClient) Close() {}

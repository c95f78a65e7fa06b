// Package llm provides chat clients for the model providers cardgest can use
// to write study cards.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config describes one model endpoint.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client is a single-shot chat model. Implementations never retry.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
	Stats() *Stats
	Close()
}

// New builds the client for cfg.Provider. An empty provider means openai.
func New(ctx context.Context, cfg Config, stats *Stats) (Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if stats == nil {
		stats = NewStats(time.Hour)
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg, stats), nil
	case ProviderAnthropic, "claude":
		return NewClaudeClient(cfg, stats), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, stats)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}

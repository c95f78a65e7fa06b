package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, DeepSeek, Moonshot, a local vLLM, ...).
type OpenAIClient struct {
	client      openai.Client
	httpClient  *http.Client
	model       string
	temperature float64
	maxTokens   int
	stats       *Stats
}

func NewOpenAIClient(cfg Config, stats *Stats) *OpenAIClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// A failed run is reported, not retried.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		httpClient:  httpClient,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		stats:       stats,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { c.stats.Observe(start, err) }()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", c.model)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Stats() *Stats { return c.stats }

func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("chat completion status %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("chat completion status %d", apiErr.StatusCode)
	}
	return fmt.Errorf("chat completion: %w", err)
}

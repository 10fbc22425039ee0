// Package llm is a thin chat-completion client used by AI-assisted query expansion.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyCompletion is returned when the model produced no choices.
var ErrEmptyCompletion = errors.New("llm returned no choices")

// Config holds the completion endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client sends a system and a user message and returns the first choice's text.
type Client struct {
	model llms.Model
}

// New creates a client for an OpenAI-compatible chat endpoint.
func New(cfg Config) (*Client, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	model, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithToken(token),
		lcopenai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return &Client{model: model}, nil
}

// NewWithModel wraps an existing llms.Model.
func NewWithModel(m llms.Model) *Client {
	return &Client{model: m}
}

// Complete runs one deterministic (temperature 0) completion.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	resp, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return stripFences(resp.Choices[0].Content), nil
}

// stripFences removes markdown code fences some models wrap their answer in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.Contains(s[:i], ",") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

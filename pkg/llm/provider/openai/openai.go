// Package openai implements llm.Completer for OpenAI-compatible chat
// completion APIs (OpenAI itself and OpenRouter).
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/persona/pkg/llm"
)

// Completer calls an OpenAI-compatible /chat/completions endpoint.
type Completer struct {
	name   string
	client *goopenai.Client
}

// Config configures a Completer.
type Config struct {
	// Name is the provider label used in errors and metrics ("openrouter", "openai").
	Name    string
	APIKey  string
	BaseURL string

	// HTTPClient overrides the default client. Nil uses a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a Completer. An empty BaseURL keeps the go-openai default.
func New(cfg Config) *Completer {
	c := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	switch {
	case cfg.HTTPClient != nil:
		c.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		c.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &Completer{
		name:   name,
		client: goopenai.NewClientWithConfig(c),
	}
}

// Name returns the provider label.
func (c *Completer) Name() string {
	return c.name
}

// Complete sends the full message sequence and returns the first choice.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	creq := goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
		// go-openai omits a zero temperature from the payload. Providers
		// treat the smallest non-zero float as greedy sampling.
		if creq.Temperature == 0 {
			creq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens != nil {
		creq.MaxTokens = *req.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, c.wrapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%s: %w", c.name, llm.ErrEmptyResponse)
	}

	choice := resp.Choices[0]

	return &llm.ChatResponse{
		Model:     resp.Model,
		CreatedAt: time.Unix(resp.Created, 0),
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: choice.Message.Content,
		},
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Completer) wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.APIError{
			Provider:   c.name,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.APIError{
			Provider:   c.name,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}

	return fmt.Errorf("%s: %w", c.name, err)
}

func toOpenAIMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

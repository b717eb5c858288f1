// Package provider builds the llm.Completer for a configured model provider.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/llm/provider/gemini"
	"github.com/papercomputeco/persona/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	OpenRouter = "openrouter"
	OpenAI     = "openai"
	Gemini     = "gemini"
)

// DefaultTimeout bounds a single model call. Reasoning models on free tiers
// can take minutes to answer.
const DefaultTimeout = 5 * time.Minute

// Options configures New.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenRouter, OpenAI, Gemini}
}

// New creates the Completer for providerType.
// Returns an error if the provider type is not recognized.
func New(ctx context.Context, providerType string, opts Options) (llm.Completer, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch providerType {
	case OpenRouter, OpenAI:
		return openai.New(openai.Config{
			Name:    providerType,
			APIKey:  opts.APIKey,
			BaseURL: opts.BaseURL,
			Timeout: timeout,
		}), nil
	case Gemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  opts.APIKey,
			BaseURL: opts.BaseURL,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}

// Package gemini implements llm.Completer on the Google Gen AI SDK
// against the Gemini API backend.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/papercomputeco/persona/pkg/llm"
)

const providerName = "gemini"

// Config configures a Completer.
type Config struct {
	APIKey string

	// BaseURL overrides the Gemini API endpoint. Empty uses the SDK default.
	BaseURL string

	HTTPClient *http.Client
	Timeout    time.Duration
}

// Completer calls Models.GenerateContent.
type Completer struct {
	client *genai.Client
}

// New creates a Completer. The context bounds client construction only.
func New(ctx context.Context, cfg Config) (*Completer, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}

	switch {
	case cfg.HTTPClient != nil:
		cc.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Completer{client: client}, nil
}

// Name returns the provider label.
func (c *Completer) Name() string {
	return providerName
}

// Complete sends the conversation with the system messages lifted into
// SystemInstruction.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	contents, system := BuildContents(req.Messages)

	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerName, err)
	}

	return ParseResponse(req.Model, resp)
}

// BuildContents converts messages to Gen AI contents. System messages are
// merged into a single instruction; assistant maps to the "model" role.
func BuildContents(msgs []llm.Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: m.Content})
			continue
		}

		role := string(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = string(genai.RoleModel)
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	return contents, system
}

// ParseResponse extracts the first candidate's text.
func ParseResponse(model string, resp *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", providerName, llm.ErrEmptyResponse)
	}

	var text string
	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if part != nil && !part.Thought {
				text += part.Text
			}
		}
	}
	if text == "" {
		return nil, fmt.Errorf("%s: %w", providerName, llm.ErrEmptyResponse)
	}

	out := &llm.ChatResponse{
		Model:     model,
		CreatedAt: time.Now(),
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: text,
		},
		StopReason: strings.ToLower(string(resp.Candidates[0].FinishReason)),
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}

	if resp.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}

package llm

// ChatRequest is a provider-agnostic chat completion request. Messages holds
// the full ordered sequence: system persona first, then history, then the
// new user message.
type ChatRequest struct {
	// Model name (e.g., "deepseek/deepseek-r1-0528:free", "gemini-2.0-flash")
	Model string `json:"model"`

	Messages []Message `json:"messages"`

	// Generation parameters. Nil means provider default.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// System returns the concatenated content of all system messages.
func (r *ChatRequest) System() string {
	var out string
	for _, m := range r.Messages {
		if m.Role != RoleSystem {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

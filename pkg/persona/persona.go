// Package persona supplies the fixed system prompt sent ahead of every
// conversation.
package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

//go:embed default_prompt.md
var defaultPrompt string

// ErrEmptyPrompt is returned when a prompt file has no content.
var ErrEmptyPrompt = errors.New("persona prompt is empty")

// Source yields the current system prompt. Implementations must be safe for
// concurrent use.
type Source interface {
	Prompt() string
}

// Static is a Source with a fixed prompt.
type Static string

// Prompt returns s.
func (s Static) Prompt() string {
	return string(s)
}

// Default returns the built-in portfolio assistant persona.
func Default() Static {
	return Static(strings.TrimSpace(defaultPrompt))
}

// ReadPromptFile reads and trims a prompt file, rejecting empty content.
func ReadPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading persona prompt: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyPrompt)
	}

	return prompt, nil
}

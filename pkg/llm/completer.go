package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned by a Completer when the provider answered
// successfully but produced no reply text.
var ErrEmptyResponse = errors.New("empty response from model")

// Completer produces a single reply for a full message sequence.
// Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/persona/pkg/llm"
)

// MockCompleter is a test llm.Completer that returns a fixed reply and
// records every request it receives.
type MockCompleter struct {
	mu       sync.Mutex
	requests []*llm.ChatRequest

	// Reply is returned as the assistant message content.
	Reply string

	// Err, when set, is returned instead of a reply.
	Err error

	// ReplyFunc, when set, computes the reply from the request.
	ReplyFunc func(req *llm.ChatRequest) string
}

func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{Reply: reply}
}

func (m *MockCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	reply := m.Reply
	if m.ReplyFunc != nil {
		reply = m.ReplyFunc(req)
	}

	return &llm.ChatResponse{
		Model:      req.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, reply),
		StopReason: "stop",
	}, nil
}

// Requests returns the requests seen so far.
func (m *MockCompleter) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockCompleter) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Package session defines the per-session transcript store.
package session

import (
	"context"
	"time"

	"github.com/papercomputeco/persona/pkg/llm"
)

// Turn is one immutable transcript entry. Order within a Session is
// insertion order; CreatedAt is informational.
type Turn struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn returns a Turn stamped with the current time.
func NewTurn(role llm.Role, content string) Turn {
	return Turn{Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

// Message converts the turn to the message sent to a model.
func (t Turn) Message() llm.Message {
	return llm.NewTextMessage(t.Role, t.Content)
}

// Session is a snapshot of one conversation transcript.
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

// Messages returns the transcript as model messages, in order.
func (s *Session) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(s.Turns))
	for _, t := range s.Turns {
		out = append(out, t.Message())
	}
	return out
}

// Store maps session ids to ordered transcripts.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetOrCreate returns the session's transcript, registering an empty
	// session if absent. The returned Session is a copy the caller owns.
	GetOrCreate(ctx context.Context, sessionID string) (*Session, error)

	// Append adds turns, in order, to an existing session. Returns
	// ErrSessionNotFound if the session was never created. Appending zero
	// turns is a no-op.
	Append(ctx context.Context, sessionID string, turns ...Turn) error

	// Close releases any resources held by the store.
	Close() error
}

// Package inmemory provides the default process-local session store.
// Sessions are created lazily and never expire.
package inmemory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/persona/pkg/session"
)

// Store implements session.Store using an in-memory map.
type Store struct {
	// mu guards sessions and closed
	mu sync.RWMutex

	// sessions maps session id to its ordered transcript
	sessions map[string][]session.Turn

	closed bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]session.Turn),
	}
}

// GetOrCreate returns a copy of the session's transcript, registering an
// empty one if absent.
func (s *Store) GetOrCreate(_ context.Context, sessionID string) (*session.Session, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, session.ErrStoreClosed
	}
	turns, ok := s.sessions[sessionID]
	if ok {
		out := &session.Session{ID: sessionID, Turns: slices.Clone(turns)}
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, session.ErrStoreClosed
	}

	// Another caller may have created it between the locks.
	turns, ok = s.sessions[sessionID]
	if !ok {
		turns = []session.Turn{}
		s.sessions[strings.Clone(sessionID)] = turns
	}

	return &session.Session{ID: sessionID, Turns: slices.Clone(turns)}, nil
}

// Append adds turns to an existing session in order.
func (s *Store) Append(_ context.Context, sessionID string, turns ...session.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrStoreClosed
	}

	existing, ok := s.sessions[sessionID]
	if !ok {
		return session.ErrSessionNotFound
	}

	if len(turns) == 0 {
		return nil
	}

	s.sessions[sessionID] = append(existing, turns...)
	return nil
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close drops all sessions.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.sessions = nil
	return nil
}

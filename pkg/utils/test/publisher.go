package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/persona/pkg/eventstream"
)

// RecordingPublisher is an eventstream.Publisher that keeps published events
// in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnAppendedEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (r *RecordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnAppendedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingPublisher) Close() error {
	return nil
}

// Events returns the events published so far.
func (r *RecordingPublisher) Events() []*eventstream.TurnAppendedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*eventstream.TurnAppendedEvent, len(r.events))
	copy(out, r.events)
	return out
}

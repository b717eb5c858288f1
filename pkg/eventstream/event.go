package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/persona/pkg/session"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnAppended is emitted after a user/assistant pair is
	// appended to a session transcript.
	EventTypeTurnAppended = "persona.turn.appended"
)

// TurnAppendedEvent is a transport-neutral event payload for an appended turn.
type TurnAppendedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	SessionID     string          `json:"session_id"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`

	// Turns holds the entries appended by this call, in order.
	Turns []session.Turn `json:"turns"`

	// TranscriptLength is the number of turns in the session after the append.
	TranscriptLength int `json:"transcript_length"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	Service  string `json:"service"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewTurnAppendedEvent fills in the envelope fields for a new event.
func NewTurnAppendedEvent(sessionID string, source EventSource, started, completed time.Time, turns []session.Turn, transcriptLength int) *TurnAppendedEvent {
	return &TurnAppendedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnAppended,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		SessionID:     sessionID,
		RequestMeta: TurnRequestMeta{
			StartedAt:   started,
			CompletedAt: completed,
			DurationMs:  completed.Sub(started).Milliseconds(),
		},
		Turns:            turns,
		TranscriptLength: transcriptLength,
	}
}

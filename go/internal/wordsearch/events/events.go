package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a lifecycle event. The value is what clients see as the message type.
type Kind string

const (
	KindNewGame         Kind = "new_game"
	KindGamePending     Kind = "game_pending"
	KindWordFound       Kind = "word_found"
	KindPuzzleCompleted Kind = "puzzle_completed"
	KindGameTimeout     Kind = "game_timeout"
)

// AllKinds lists every lifecycle event kind.
var AllKinds = []Kind{KindNewGame, KindGamePending, KindWordFound, KindPuzzleCompleted, KindGameTimeout}

// Payload is implemented by every event payload type.
type Payload interface {
	Kind() Kind
}

// Event is one lifecycle notification produced by the scheduler.
type Event struct {
	ID         string
	SessionID  string
	OccurredAt time.Time
	Payload    Payload
}

// New wraps payload into an event with a fresh id.
func New(sessionID string, at time.Time, payload Payload) Event {
	return Event{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		OccurredAt: at,
		Payload:    payload,
	}
}

// Kind returns the payload's kind.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

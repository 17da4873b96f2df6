package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/events"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

// GameEvent is the envelope every message to a websocket client is wrapped in
type GameEvent struct {
	ID        string          `json:"id"`        // Event UUID
	SessionID string          `json:"sessionId"` // Session the event belongs to, empty if none
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType is the message type seen by clients
type EventType string

const (
	EventTypeNewGame         = EventType(events.KindNewGame)
	EventTypeGamePending     = EventType(events.KindGamePending)
	EventTypeWordFound       = EventType(events.KindWordFound)
	EventTypePuzzleCompleted = EventType(events.KindPuzzleCompleted)
	EventTypeGameTimeout     = EventType(events.KindGameTimeout)
	EventTypeCurrentGame     EventType = "current_game"
	EventTypeError           EventType = "error"
)

// ClientMessageType is a request a websocket client can send
type ClientMessageType string

const (
	ClientRequestCurrentGame ClientMessageType = "request_current_game"
)

// ClientMessage is the shape of every message read from a client
type ClientMessage struct {
	Type ClientMessageType `json:"type"`
}

// FromEvent wraps a scheduler event for the wire
func FromEvent(evt events.Event) (*GameEvent, error) {
	if evt.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", evt.ID)
	}
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", evt.Kind(), err)
	}
	return &GameEvent{
		ID:        evt.ID,
		SessionID: evt.SessionID,
		Type:      EventType(evt.Kind()),
		Timestamp: evt.OccurredAt,
		Data:      data,
	}, nil
}

// CurrentGameEvent builds the reply to a current-game request. snap may be nil, which
// clients render as "no game running".
func CurrentGameEvent(snap *session.Snapshot) (*GameEvent, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	evt := &GameEvent{
		ID:        uuid.NewString(),
		Type:      EventTypeCurrentGame,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if snap != nil {
		evt.SessionID = snap.SessionID
	}
	return evt, nil
}

// ParseEventPayload decodes the data of an envelope into its payload type
func ParseEventPayload(event *GameEvent) (any, error) {
	var payload any
	switch event.Type {
	case EventTypeNewGame:
		payload = &events.NewGamePayload{}
	case EventTypeGamePending:
		payload = &events.GamePendingPayload{}
	case EventTypeWordFound:
		payload = &events.WordFoundPayload{}
	case EventTypePuzzleCompleted:
		payload = &events.PuzzleCompletedPayload{}
	case EventTypeGameTimeout:
		payload = &events.GameTimeoutPayload{}
	case EventTypeCurrentGame:
		var snap *session.Snapshot
		if err := json.Unmarshal(event.Data, &snap); err != nil {
			return nil, err
		}
		return snap, nil
	default:
		return nil, nil // Unknown event type
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

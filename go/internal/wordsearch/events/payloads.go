package events

import (
	"time"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

// Payload types shared between the scheduler, the gateway and the relay

// NewGamePayload is the full snapshot of a session that just became ACTIVE
type NewGamePayload struct {
	session.Snapshot
}

// GamePendingPayload announces a session that will start shortly
type GamePendingPayload struct {
	SessionID string    `json:"sessionId"`
	PuzzleID  string    `json:"puzzleId"`
	Category  string    `json:"category"`
	StartsAt  time.Time `json:"startsAt"`
	Message   string    `json:"message"`
}

// WordFoundPayload is sent for every accepted submission
type WordFoundPayload struct {
	Word            string              `json:"word"`
	IsBonus         bool                `json:"isBonus"`
	FoundBy         string              `json:"foundBy"`
	FoundWords      []session.FoundWord `json:"foundWords"`
	PuzzleCompleted bool                `json:"puzzleCompleted"`
}

// PuzzleCompletedPayload is sent when every target word has been found before the deadline
type PuzzleCompletedPayload struct {
	Message      string    `json:"message"`
	NextGameAt   time.Time `json:"nextGameAt"`
	GraceSeconds int       `json:"graceSeconds"`
	FoundCount   int       `json:"foundCount"`
}

// GameTimeoutPayload is sent when the round clock runs out
type GameTimeoutPayload struct {
	Message      string    `json:"message"`
	NextGameAt   time.Time `json:"nextGameAt"`
	GraceSeconds int       `json:"graceSeconds"`
	FoundCount   int       `json:"foundCount"`
	TotalWords   int       `json:"totalWords"`
}

func (NewGamePayload) Kind() Kind { return KindNewGame }
func (GamePendingPayload) Kind() Kind { return KindGamePending }
func (WordFoundPayload) Kind() Kind { return KindWordFound }
func (PuzzleCompletedPayload) Kind() Kind { return KindPuzzleCompleted }
func (GameTimeoutPayload) Kind() Kind { return KindGameTimeout }

package session

import (
	"errors"
	"time"
)

// ErrInvalidTransition is returned when a lifecycle method is called from the wrong status.
var ErrInvalidTransition = errors.New("session: invalid status transition")

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether the round is over.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Rejection explains why a submission was not accepted.
type Rejection string

const (
	RejectNone           Rejection = ""
	RejectTooShort       Rejection = "too_short"
	RejectInvalidFormat  Rejection = "invalid_format"
	RejectAlreadyFound   Rejection = "already_found"
	RejectNotOnGrid      Rejection = "not_on_grid"
	RejectInvalidSession Rejection = "invalid_session"
	RejectNotActive      Rejection = "not_active"
)

// Message returns the player-facing text for the rejection.
func (r Rejection) Message() string {
	switch r {
	case RejectTooShort:
		return "Word must be at least 3 letters"
	case RejectInvalidFormat:
		return "Word must contain letters only"
	case RejectAlreadyFound:
		return "Word already found"
	case RejectNotOnGrid:
		return "Word is not on the grid"
	case RejectInvalidSession:
		return "Invalid session"
	case RejectNotActive:
		return "Game not active"
	default:
		return ""
	}
}

// SessionLevel reports whether the rejection happened before word validation, i.e. the
// submission never reached the session ledger.
func (r Rejection) SessionLevel() bool {
	return r == RejectInvalidSession || r == RejectNotActive
}

// FoundWord is one entry of the append-only ledger.
type FoundWord struct {
	Word    string    `json:"word"`
	FoundBy string    `json:"foundBy"`
	FoundAt time.Time `json:"foundAt"`
	IsBonus bool      `json:"isBonus"`
}

// SubmissionResult is returned for every submission, accepted or not.
type SubmissionResult struct {
	Success         bool        `json:"success"`
	Word            string      `json:"word"`
	Reason          Rejection   `json:"reason,omitempty"`
	IsBonus         bool        `json:"isBonus"`
	AlreadyFound    bool        `json:"alreadyFound"`
	FoundBy         string      `json:"foundBy,omitempty"`
	FoundWords      []FoundWord `json:"foundWords"`
	PuzzleCompleted bool        `json:"puzzleCompleted"`
}

// Rejected builds a failed result carrying reason.
func Rejected(word string, reason Rejection, ledger []FoundWord) SubmissionResult {
	if ledger == nil {
		ledger = []FoundWord{}
	}
	return SubmissionResult{
		Word:         word,
		Reason:       reason,
		AlreadyFound: reason == RejectAlreadyFound,
		FoundWords:   ledger,
	}
}

// Snapshot is the public view of a session sent to clients.
type Snapshot struct {
	SessionID  string      `json:"sessionId"`
	PuzzleID   string      `json:"puzzleId"`
	Category   string      `json:"category"`
	Words      []string    `json:"words"`
	GridData   [][]string  `json:"gridData"`
	StartTime  *time.Time  `json:"startTime"`
	EndTime    *time.Time  `json:"endTime"`
	FoundWords []FoundWord `json:"foundWords"`
	Status     Status      `json:"status"`
}

package session

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/grid"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/puzzle"
)

// MinWordLength is the shortest word a player may submit.
const MinWordLength = 3

// GameSession holds one round: its grid, target words and found-word ledger.
// It is not safe for concurrent use; callers serialize access with their own lock.
type GameSession struct {
	id       string
	puzzleID string
	category string
	words    []string
	targets  map[string]struct{}
	grid     *grid.Grid

	startTime *time.Time
	endTime   *time.Time

	foundWords []FoundWord
	found      map[string]struct{}
	status     Status
}

// NewID returns a short random session id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// New creates a PENDING session for p played on g.
func New(id string, p puzzle.Puzzle, g *grid.Grid) *GameSession {
	words := lo.Map(p.Words, func(w string, _ int) string { return strings.ToUpper(w) })
	return &GameSession{
		id:         id,
		puzzleID:   p.ID,
		category:   p.Category,
		words:      words,
		targets:    lo.SliceToMap(words, func(w string) (string, struct{}) { return w, struct{}{} }),
		grid:       g,
		foundWords: []FoundWord{},
		found:      make(map[string]struct{}),
		status:     StatusPending,
	}
}

func (s *GameSession) ID() string { return s.id }
func (s *GameSession) PuzzleID() string { return s.puzzleID }
func (s *GameSession) Category() string { return s.category }
func (s *GameSession) Status() Status { return s.status }
func (s *GameSession) Grid() *grid.Grid { return s.grid }
func (s *GameSession) Words() []string { return slices.Clone(s.words) }
func (s *GameSession) FoundCount() int { return len(s.foundWords) }
func (s *GameSession) TargetCount() int { return len(s.words) }

// EndTime returns the round deadline, or the zero time while PENDING.
func (s *GameSession) EndTime() time.Time {
	if s.endTime == nil {
		return time.Time{}
	}
	return *s.endTime
}

// FoundWords returns a copy of the ledger.
func (s *GameSession) FoundWords() []FoundWord {
	return slices.Clone(s.foundWords)
}

// Activate starts the round clock. Only valid from PENDING.
func (s *GameSession) Activate(now time.Time, roundDuration time.Duration) error {
	if s.status != StatusPending {
		return fmt.Errorf("%w: activate from %s", ErrInvalidTransition, s.status)
	}
	start := now
	end := now.Add(roundDuration)
	s.startTime = &start
	s.endTime = &end
	s.status = StatusActive
	return nil
}

// Complete ends the round early. Only valid from ACTIVE.
func (s *GameSession) Complete() error {
	if s.status != StatusActive {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusCompleted
	return nil
}

// Expire ends the round on timeout. Only valid from ACTIVE.
func (s *GameSession) Expire() error {
	if s.status != StatusActive {
		return fmt.Errorf("%w: expire from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusExpired
	return nil
}

// Expired reports whether the session is still marked ACTIVE past its deadline.
func (s *GameSession) Expired(now time.Time) bool {
	return s.status == StatusActive && s.endTime != nil && now.After(*s.endTime)
}

// IsComplete reports whether every target word is in the ledger. Bonus words do not count.
func (s *GameSession) IsComplete() bool {
	for _, w := range s.words {
		if _, ok := s.found[w]; !ok {
			return false
		}
	}
	return true
}

// SubmitWord validates raw and, if it is a new word traceable in the grid, appends it to the
// ledger. Rejections leave the session untouched.
func (s *GameSession) SubmitWord(raw, playerID string, now time.Time) SubmissionResult {
	word := strings.ToUpper(strings.TrimSpace(raw))

	if s.status != StatusActive {
		return Rejected(word, RejectNotActive, s.FoundWords())
	}
	if len(word) < MinWordLength {
		return Rejected(word, RejectTooShort, s.FoundWords())
	}
	if !puzzle.IsLetters(word) {
		return Rejected(word, RejectInvalidFormat, s.FoundWords())
	}
	if _, ok := s.found[word]; ok {
		return Rejected(word, RejectAlreadyFound, s.FoundWords())
	}
	if !s.grid.Contains(word) {
		return Rejected(word, RejectNotOnGrid, s.FoundWords())
	}

	_, target := s.targets[word]
	s.foundWords = append(s.foundWords, FoundWord{
		Word:    word,
		FoundBy: playerID,
		FoundAt: now,
		IsBonus: !target,
	})
	s.found[word] = struct{}{}

	return SubmissionResult{
		Success:         true,
		Word:            word,
		IsBonus:         !target,
		FoundBy:         playerID,
		FoundWords:      s.FoundWords(),
		PuzzleCompleted: s.IsComplete(),
	}
}

// Snapshot returns the public view. Start and end times are nil while PENDING.
func (s *GameSession) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		PuzzleID:   s.puzzleID,
		Category:   s.category,
		Words:      s.Words(),
		GridData:   s.grid.Rows(),
		FoundWords: s.FoundWords(),
		Status:     s.status,
	}
	if s.startTime != nil {
		t := *s.startTime
		snap.StartTime = &t
	}
	if s.endTime != nil {
		t := *s.endTime
		snap.EndTime = &t
	}
	return snap
}

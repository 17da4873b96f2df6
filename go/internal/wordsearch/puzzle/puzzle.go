package puzzle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	// ErrNoPuzzles is returned when a rotation is built from an empty puzzle list.
	ErrNoPuzzles = errors.New("puzzle: no puzzles available")
	// ErrInvalidPuzzle is returned when a puzzle fails normalization.
	ErrInvalidPuzzle = errors.New("puzzle: invalid puzzle")
)

// Puzzle is a themed word list. Read-only once loaded.
type Puzzle struct {
	ID       string   `json:"puzzleId" yaml:"puzzleId"`
	Category string   `json:"category" yaml:"category"`
	Words    []string `json:"words" yaml:"words"`
}

// Source lists the puzzles available to the game.
type Source interface {
	ListPuzzles(ctx context.Context) ([]Puzzle, error)
}

// Default is the built-in puzzle used whenever no other source yields anything.
func Default() Puzzle {
	return Puzzle{
		ID:       "DEFAULT",
		Category: "Default",
		Words:    []string{"WORD", "SEARCH", "GAME", "PUZZLE", "FIND", "GRID", "LETTERS", "FUN"},
	}
}

// Normalize uppercases and trims every word and checks that the puzzle can be played on a
// grid of the given size. Duplicate words are collapsed.
func Normalize(p Puzzle, gridSize int) (Puzzle, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Puzzle{}, fmt.Errorf("%w: missing puzzleId", ErrInvalidPuzzle)
	}
	if len(p.Words) == 0 {
		return Puzzle{}, fmt.Errorf("%w: %s has no words", ErrInvalidPuzzle, p.ID)
	}

	words := lo.Uniq(lo.Map(p.Words, func(w string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(w))
	}))
	for _, w := range words {
		if w == "" {
			return Puzzle{}, fmt.Errorf("%w: %s has an empty word", ErrInvalidPuzzle, p.ID)
		}
		if !IsLetters(w) {
			return Puzzle{}, fmt.Errorf("%w: %s word %q is not letters only", ErrInvalidPuzzle, p.ID, w)
		}
		if gridSize > 0 && len(w) > gridSize {
			return Puzzle{}, fmt.Errorf("%w: %s word %q is longer than the grid", ErrInvalidPuzzle, p.ID, w)
		}
	}

	return Puzzle{
		ID:       strings.TrimSpace(p.ID),
		Category: strings.TrimSpace(p.Category),
		Words:    words,
	}, nil
}

// IsLetters reports whether s is non-empty and made only of A-Z.
func IsLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// Load reads the source once, normalizes every puzzle and drops the ones that cannot be
// played. It never returns an empty list: a failing or empty source yields Default.
func Load(ctx context.Context, src Source, gridSize int) []Puzzle {
	if src == nil {
		log.Warn().Msg("no puzzle source configured, using default puzzle")
		return []Puzzle{Default()}
	}

	raw, err := src.ListPuzzles(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("puzzle source unavailable, using default puzzle")
		return []Puzzle{Default()}
	}

	puzzles := make([]Puzzle, 0, len(raw))
	for _, p := range raw {
		np, err := Normalize(p, gridSize)
		if err != nil {
			log.Warn().Err(err).Str("puzzle_id", p.ID).Msg("skipping puzzle")
			continue
		}
		puzzles = append(puzzles, np)
	}
	puzzles = lo.UniqBy(puzzles, func(p Puzzle) string { return p.ID })

	if len(puzzles) == 0 {
		log.Warn().Msg("puzzle source yielded no playable puzzles, using default puzzle")
		return []Puzzle{Default()}
	}

	log.Info().Int("count", len(puzzles)).Msg("puzzles loaded")
	return puzzles
}

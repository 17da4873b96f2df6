package puzzle

import (
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Rotation hands out puzzles so that every puzzle is used once before any repeats.
// It is not safe for concurrent use; the scheduler calls it under its own lock.
type Rotation struct {
	puzzles []Puzzle
	used    map[string]struct{}
	rng     *rand.Rand
}

// NewRotation builds a rotation over puzzles.
func NewRotation(puzzles []Puzzle, rng *rand.Rand) (*Rotation, error) {
	if len(puzzles) == 0 {
		return nil, ErrNoPuzzles
	}
	return &Rotation{
		puzzles: puzzles,
		used:    make(map[string]struct{}, len(puzzles)),
		rng:     rng,
	}, nil
}

// Next picks uniformly among the puzzles not used this cycle, resetting the cycle once
// every puzzle has been used.
func (r *Rotation) Next() Puzzle {
	candidates := r.unused()
	if len(candidates) == 0 {
		log.Info().Int("puzzles", len(r.puzzles)).Msg("all puzzles used, starting a new rotation cycle")
		clear(r.used)
		candidates = r.puzzles
	}

	p := candidates[r.rng.IntN(len(candidates))]
	r.used[p.ID] = struct{}{}
	return p
}

// Len returns the number of puzzles in the rotation.
func (r *Rotation) Len() int { return len(r.puzzles) }

// Remaining returns how many puzzles are left before the cycle resets.
func (r *Rotation) Remaining() int { return len(r.unused()) }

func (r *Rotation) unused() []Puzzle {
	return lo.Filter(r.puzzles, func(p Puzzle, _ int) bool {
		_, seen := r.used[p.ID]
		return !seen
	})
}

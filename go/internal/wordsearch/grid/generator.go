package grid

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// LetterPool is the weighted pool filler letters are drawn from. Vowels and common
// consonants repeat so the noise looks like English rather than uniform A-Z.
const LetterPool = "EEEEEEEEAAAAAIIIIIOOOOONNNNNRRRRRTTTTTLLLLSSSSUUUUDDGGGBBCCMMPPFFHHVVWWYYKJXQZ"

// DefaultMaxAttempts bounds the randomized placement passes before falling back.
const DefaultMaxAttempts = 50

var (
	// ErrEmptyWordList is returned when there is nothing to place.
	ErrEmptyWordList = errors.New("grid: empty word list")
	// ErrWordsDropped is returned when even the fallback pass left words out of the grid.
	ErrWordsDropped = errors.New("grid: words could not be placed")
)

// fallbackDirections are the only directions the deterministic pass uses.
var fallbackDirections = []Direction{Right, Down}

// PlacedWord records where a word ended up. Diagnostic only.
type PlacedWord struct {
	Word       string    `json:"word"`
	PlacedForm string    `json:"placedForm"`
	Row        int       `json:"row"`
	Col        int       `json:"col"`
	Direction  Direction `json:"direction"`
}

// Result is the outcome of a generation run.
type Result struct {
	Grid         *Grid
	Placed       []PlacedWord
	Missing      []string
	Attempts     int
	UsedFallback bool
}

// Generator builds filled letter grids containing a word list.
type Generator struct {
	Size        int
	MaxAttempts int
	Pool        string
}

// NewGenerator returns a generator with the standard size, attempt budget and letter pool.
func NewGenerator() *Generator {
	return &Generator{
		Size:        DefaultSize,
		MaxAttempts: DefaultMaxAttempts,
		Pool:        LetterPool,
	}
}

// Generate places every word into a fresh grid and fills the rest with pool letters.
//
// Up to MaxAttempts randomized passes are made; each pass picks uniformly among all legal
// (row, col, direction) triples for each word. If none succeeds a deterministic two-direction
// pass is used. When that pass also drops words, the partial result is returned together with
// ErrWordsDropped so the caller can discard it. The result is never trusted without Verify.
func (gen *Generator) Generate(rng *rand.Rand, words []string) (*Result, error) {
	if len(words) == 0 {
		return nil, ErrEmptyWordList
	}

	sorted := make([]string, len(words))
	for i, w := range words {
		sorted[i] = strings.ToUpper(strings.TrimSpace(w))
	}
	// Longest first; stable so equal lengths keep their original order.
	slices.SortStableFunc(sorted, func(a, b string) int { return len(b) - len(a) })

	for attempt := 1; attempt <= gen.MaxAttempts; attempt++ {
		g, placed, ok := gen.randomPass(rng, sorted)
		if !ok {
			continue
		}
		gen.fill(rng, g)

		log.Debug().
			Int("attempt", attempt).
			Int("words", len(placed)).
			Msg("grid generated")

		return &Result{Grid: g, Placed: placed, Attempts: attempt}, nil
	}

	log.Warn().
		Int("max_attempts", gen.MaxAttempts).
		Strs("words", sorted).
		Msg("randomized placement exhausted, using fallback pass")

	g, placed, missing := gen.fallbackPass(sorted)
	gen.fill(rng, g)

	res := &Result{
		Grid:         g,
		Placed:       placed,
		Missing:      missing,
		Attempts:     gen.MaxAttempts,
		UsedFallback: true,
	}
	if len(missing) > 0 {
		return res, fmt.Errorf("%w: %s", ErrWordsDropped, strings.Join(missing, ", "))
	}
	return res, nil
}

// randomPass tries to place every word once. It aborts as soon as a word has no legal spot.
func (gen *Generator) randomPass(rng *rand.Rand, words []string) (*Grid, []PlacedWord, bool) {
	g := New(gen.Size)
	placed := make([]PlacedWord, 0, len(words))

	type spot struct {
		row, col int
		dir      Direction
	}

	for _, word := range words {
		form := word
		if rng.IntN(2) == 0 {
			form = reverse(word)
		}

		var spots []spot
		for _, d := range Directions {
			for row := 0; row < gen.Size; row++ {
				for col := 0; col < gen.Size; col++ {
					if g.canPlace(form, row, col, d) {
						spots = append(spots, spot{row, col, d})
					}
				}
			}
		}
		if len(spots) == 0 {
			return nil, nil, false
		}

		s := spots[rng.IntN(len(spots))]
		g.place(form, s.row, s.col, s.dir)
		placed = append(placed, PlacedWord{
			Word:       word,
			PlacedForm: form,
			Row:        s.row,
			Col:        s.col,
			Direction:  s.dir,
		})
	}
	return g, placed, true
}

// fallbackPass scans row-major and puts each word, forwards, at the first legal position
// going right or down. Words with no legal position are reported as missing.
func (gen *Generator) fallbackPass(words []string) (*Grid, []PlacedWord, []string) {
	g := New(gen.Size)
	var placed []PlacedWord
	var missing []string

	for _, word := range words {
		ok := false
	scan:
		for row := 0; row < gen.Size; row++ {
			for col := 0; col < gen.Size; col++ {
				for _, d := range fallbackDirections {
					if g.canPlace(word, row, col, d) {
						g.place(word, row, col, d)
						placed = append(placed, PlacedWord{
							Word:       word,
							PlacedForm: word,
							Row:        row,
							Col:        col,
							Direction:  d,
						})
						ok = true
						break scan
					}
				}
			}
		}
		if !ok {
			missing = append(missing, word)
		}
	}
	return g, placed, missing
}

// fill draws every empty cell independently from the letter pool.
func (gen *Generator) fill(rng *rand.Rand, g *Grid) {
	pool := gen.Pool
	if pool == "" {
		pool = LetterPool
	}
	for r := range g.cells {
		for c := range g.cells[r] {
			if g.cells[r][c] == empty {
				g.cells[r][c] = pool[rng.IntN(len(pool))]
			}
		}
	}
}

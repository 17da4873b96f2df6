package grid

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func mustRows(t *testing.T, rows ...string) *Grid {
	t.Helper()
	g, err := FromRows(rows...)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return g
}

func TestContains_AllDirectionsAndReversed(t *testing.T) {
	g := mustRows(t,
		"CATXX",
		"XOXXX",
		"XXWXX",
		"DOGXX",
		"XXXXX",
	)

	tests := []struct {
		word string
		want bool
	}{
		{"CAT", true},  // right
		{"TAC", true},  // left
		{"COW", true},  // down-right
		{"WOC", true},  // up-left
		{"DOG", true},  // right on row 3
		{"GOD", true},  // reversed
		{"cat", true},  // case-insensitive
		{"CXXD", true}, // down column 0
		{"CATS", false},
		{"BIRD", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := g.Contains(tt.word); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestContains_DoesNotWrap(t *testing.T) {
	g := mustRows(t,
		"XXXCA",
		"TXXXX",
		"XXXXX",
		"XXXXX",
		"XXXXX",
	)
	if g.Contains("CAT") {
		t.Fatal("word spanning a row break must not match")
	}
}

func TestFromRows_Rejects(t *testing.T) {
	if _, err := FromRows("AB", "C"); err == nil {
		t.Error("expected error for ragged rows")
	}
	if _, err := FromRows("A1", "CD"); err == nil {
		t.Error("expected error for non-letter")
	}
}

func TestGenerate_SolvableAndFilled(t *testing.T) {
	words := []string{"WORD", "SEARCH", "GAME", "PUZZLE", "FIND", "GRID", "LETTERS", "FUN"}
	gen := NewGenerator()

	for seed := uint64(1); seed <= 200; seed++ {
		res, err := gen.Generate(testRNG(seed), words)
		if err != nil {
			t.Fatalf("seed %d: Generate: %v", seed, err)
		}
		g := res.Grid
		if g.Size() != DefaultSize {
			t.Fatalf("seed %d: size = %d, want %d", seed, g.Size(), DefaultSize)
		}
		if !g.Filled() {
			t.Fatalf("seed %d: grid has empty cells:\n%s", seed, g)
		}
		for r := 0; r < g.Size(); r++ {
			for c := 0; c < g.Size(); c++ {
				if ch := g.At(r, c); ch < 'A' || ch > 'Z' {
					t.Fatalf("seed %d: cell (%d,%d) = %q", seed, r, c, ch)
				}
			}
		}
		if !Verify(g, words) {
			t.Fatalf("seed %d: missing %v in\n%s", seed, Missing(g, words), g)
		}
		if len(res.Placed) != len(words) {
			t.Fatalf("seed %d: placed %d words, want %d", seed, len(res.Placed), len(words))
		}
	}
}

func TestGenerate_PlacesLongestFirst(t *testing.T) {
	res, err := NewGenerator().Generate(testRNG(7), []string{"CAT", "ELEPHANT", "DOGS"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := []string{res.Placed[0].Word, res.Placed[1].Word, res.Placed[2].Word}
	want := []string{"ELEPHANT", "DOGS", "CAT"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("placement order = %v, want %v", got, want)
		}
	}
}

func TestGenerate_UsesBothOrientations(t *testing.T) {
	reversed := false
	for seed := uint64(1); seed <= 50 && !reversed; seed++ {
		res, err := NewGenerator().Generate(testRNG(seed), []string{"PUZZLE"})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		reversed = res.Placed[0].PlacedForm == "ELZZUP"
	}
	if !reversed {
		t.Fatal("expected at least one reversed placement over 50 seeds")
	}
}

func TestGenerate_FallbackRowMajor(t *testing.T) {
	gen := &Generator{Size: 5, MaxAttempts: 0, Pool: LetterPool}

	res, err := gen.Generate(testRNG(1), []string{"ABC", "ABCDE"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.UsedFallback {
		t.Fatal("expected fallback")
	}

	// ABCDE goes first at (0,0) going right; ABC then overlaps it at the same spot.
	first := res.Placed[0]
	if first.Word != "ABCDE" || first.Row != 0 || first.Col != 0 || first.Direction != Right {
		t.Fatalf("unexpected first placement %+v", first)
	}
	second := res.Placed[1]
	if second.Row != 0 || second.Col != 0 || second.Direction != Right {
		t.Fatalf("unexpected second placement %+v", second)
	}
	if !Verify(res.Grid, []string{"ABC", "ABCDE"}) {
		t.Fatalf("fallback grid not solvable:\n%s", res.Grid)
	}
}

func TestGenerate_FallbackDropsWords(t *testing.T) {
	gen := &Generator{Size: 4, MaxAttempts: 3, Pool: LetterPool}

	res, err := gen.Generate(testRNG(3), []string{"TOOLONGWORD", "CAT"})
	if !errors.Is(err, ErrWordsDropped) {
		t.Fatalf("err = %v, want ErrWordsDropped", err)
	}
	if res == nil || len(res.Missing) != 1 || res.Missing[0] != "TOOLONGWORD" {
		t.Fatalf("unexpected result %+v", res)
	}
	if Verify(res.Grid, []string{"TOOLONGWORD", "CAT"}) {
		t.Fatal("verification must fail when a word was dropped")
	}
	if !res.Grid.Contains("CAT") {
		t.Fatal("placeable word should still be in the grid")
	}
}

func TestGenerate_EmptyList(t *testing.T) {
	if _, err := NewGenerator().Generate(testRNG(1), nil); !errors.Is(err, ErrEmptyWordList) {
		t.Fatalf("err = %v, want ErrEmptyWordList", err)
	}
}

func TestFill_DrawsFromPool(t *testing.T) {
	gen := &Generator{Size: 6, MaxAttempts: 5, Pool: "Q"}
	res, err := gen.Generate(testRNG(11), []string{"ABC"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	count := strings.Count(res.Grid.String(), "Q")
	if count < 6*6-3 {
		t.Fatalf("expected filler from pool, got %d Qs:\n%s", count, res.Grid)
	}
}

func TestRows_Shape(t *testing.T) {
	g := mustRows(t, "AB", "CD")
	rows := g.Rows()
	if len(rows) != 2 || rows[0][0] != "A" || rows[1][1] != "D" {
		t.Fatalf("Rows() = %v", rows)
	}
}

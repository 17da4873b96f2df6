package grid

import "github.com/rs/zerolog/log"

// Verify reports whether every word can be traced in g. Placement bookkeeping is ignored;
// each word is searched for from scratch.
func Verify(g *Grid, words []string) bool {
	missing := Missing(g, words)
	for _, w := range missing {
		log.Warn().Str("word", w).Msg("word cannot be found in the grid")
	}
	return len(missing) == 0
}

// Missing returns the words that cannot be traced in g, in input order.
func Missing(g *Grid, words []string) []string {
	if g == nil {
		return append([]string(nil), words...)
	}
	var out []string
	for _, w := range words {
		if !g.Contains(w) {
			out = append(out, w)
		}
	}
	return out
}

package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/dbconfig"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/grid"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/puzzle"
)

// loadPuzzles reads the configured puzzle source once at startup. Postgres is only
// connected for the duration of the load.
func loadPuzzles(ctx context.Context, cfg *Config) ([]puzzle.Puzzle, error) {
	var src puzzle.Source

	switch cfg.Puzzles.Source {
	case "postgres":
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		pool, err := dbconfig.NewPool(ctx, dbCfg)
		if err != nil {
			// Load falls back to the built-in puzzle when the source is unavailable.
			log.Error().Err(err).Msg("puzzle database unavailable")
		} else {
			defer pool.Close()
			src = puzzle.NewPostgresSource(pool)
		}
	default:
		src = puzzle.NewFileSource(cfg.Puzzles.File)
	}

	return puzzle.Load(ctx, src, grid.DefaultSize), nil
}

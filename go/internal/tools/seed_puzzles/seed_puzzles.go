package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/etruxton/for-you-puzzles/go/internal/dbconfig"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/grid"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/puzzle"
)

const createTableSQL = `
    CREATE TABLE IF NOT EXISTS puzzles (
      puzzle_id  TEXT PRIMARY KEY,
      category   TEXT NOT NULL,
      words      TEXT[] NOT NULL,
      updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )
`

// xmax is zero only for freshly inserted rows.
const upsertPuzzleSQL = `
    INSERT INTO puzzles (puzzle_id, category, words)
    VALUES ($1, $2, $3)
    ON CONFLICT (puzzle_id) DO UPDATE
      SET category = EXCLUDED.category,
          words = EXCLUDED.words,
          updated_at = now()
    RETURNING (xmax = 0) AS inserted
`

func main() {
	path := "puzzles.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	ctx := context.Background()

	// 1) Load the puzzle file
	raw, err := puzzle.NewFileSource(path).ListPuzzles(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read puzzles: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := dbconfig.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		fmt.Fprintf(os.Stderr, "create puzzles table: %v\n", err)
		os.Exit(1)
	}

	// 3) Upsert and count
	inserted, updated, invalid, errs := seed(ctx, pool, raw)

	// 4) Print summary
	fmt.Printf(
		"Puzzles seed complete: %d total, %d inserted, %d updated, %d invalid, %d errors\n",
		len(raw), inserted, updated, invalid, errs,
	)
}

func seed(ctx context.Context, pool *pgxpool.Pool, raw []puzzle.Puzzle) (inserted, updated, invalid, errs int) {
	for _, p := range raw {
		np, err := puzzle.Normalize(p, grid.DefaultSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping puzzle %q: %v\n", p.ID, err)
			invalid++
			continue
		}

		var isNew bool
		if err := pool.QueryRow(ctx, upsertPuzzleSQL, np.ID, np.Category, np.Words).Scan(&isNew); err != nil {
			fmt.Fprintf(os.Stderr, "error upserting puzzle %s: %v\n", np.ID, err)
			errs++
			continue
		}
		if isNew {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, invalid, errs
}

package puzzle

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listPuzzlesSQL = `
	SELECT puzzle_id, category, words
	FROM puzzles
	ORDER BY puzzle_id
`

// PostgresSource reads puzzles from the puzzles table.
type PostgresSource struct {
	db Querier
}

// NewPostgresSource returns a source reading through db, usually a *pgxpool.Pool.
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

// ListPuzzles implements Source.
func (s *PostgresSource) ListPuzzles(ctx context.Context) ([]Puzzle, error) {
	rows, err := s.db.Query(ctx, listPuzzlesSQL)
	if err != nil {
		return nil, fmt.Errorf("query puzzles: %w", err)
	}

	puzzles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Puzzle, error) {
		var p Puzzle
		err := row.Scan(&p.ID, &p.Category, &p.Words)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan puzzles: %w", err)
	}
	return puzzles, nil
}

package grid

import (
	"fmt"
	"strings"
)

// DefaultSize is the side length of every puzzle grid.
const DefaultSize = 10

// empty marks a cell that has not been assigned a letter yet.
const empty byte = 0

// Direction is a unit step through the grid.
type Direction struct {
	DRow int `json:"dRow"`
	DCol int `json:"dCol"`
}

var (
	Right     = Direction{0, 1}
	Left      = Direction{0, -1}
	Down      = Direction{1, 0}
	Up        = Direction{-1, 0}
	DownRight = Direction{1, 1}
	UpLeft    = Direction{-1, -1}
	DownLeft  = Direction{1, -1}
	UpRight   = Direction{-1, 1}
)

// Directions lists all eight directions a word may run in.
var Directions = []Direction{Right, Left, Down, Up, DownRight, UpLeft, DownLeft, UpRight}

// String returns a compass-style name for the direction.
func (d Direction) String() string {
	switch d {
	case Right:
		return "E"
	case Left:
		return "W"
	case Down:
		return "S"
	case Up:
		return "N"
	case DownRight:
		return "SE"
	case UpLeft:
		return "NW"
	case DownLeft:
		return "SW"
	case UpRight:
		return "NE"
	default:
		return fmt.Sprintf("(%d,%d)", d.DRow, d.DCol)
	}
}

// Grid is a square matrix of uppercase letters.
type Grid struct {
	size  int
	cells [][]byte
}

// New allocates an empty size x size grid.
func New(size int) *Grid {
	cells := make([][]byte, size)
	for r := range cells {
		cells[r] = make([]byte, size)
	}
	return &Grid{size: size, cells: cells}
}

// FromRows builds a grid from equal-length rows of letters. Used to load fixed layouts.
func FromRows(rows ...string) (*Grid, error) {
	g := New(len(rows))
	for r, row := range rows {
		row = strings.ToUpper(row)
		if len(row) != len(rows) {
			return nil, fmt.Errorf("row %d has %d letters, want %d", r, len(row), len(rows))
		}
		for c := 0; c < len(row); c++ {
			if row[c] < 'A' || row[c] > 'Z' {
				return nil, fmt.Errorf("row %d col %d: %q is not a letter", r, c, row[c])
			}
			g.cells[r][c] = row[c]
		}
	}
	return g, nil
}

// Size returns the side length of the grid.
func (g *Grid) Size() int { return g.size }

// At returns the letter at (row, col), or 0 if the cell is still empty.
func (g *Grid) At(row, col int) byte { return g.cells[row][col] }

// Filled reports whether every cell holds a letter.
func (g *Grid) Filled() bool {
	for _, row := range g.cells {
		for _, cell := range row {
			if cell == empty {
				return false
			}
		}
	}
	return true
}

// Rows returns the grid as a matrix of one-letter strings, the shape clients render.
func (g *Grid) Rows() [][]string {
	out := make([][]string, g.size)
	for r, row := range g.cells {
		out[r] = make([]string, g.size)
		for c, cell := range row {
			if cell != empty {
				out[r][c] = string(cell)
			}
		}
	}
	return out
}

// String renders the grid one row per line, empty cells as '.'.
func (g *Grid) String() string {
	var b strings.Builder
	for r, row := range g.cells {
		if r > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			if cell == empty {
				b.WriteByte('.')
			} else {
				b.WriteByte(cell)
			}
		}
	}
	return b.String()
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.size && col >= 0 && col < g.size
}

// canPlace reports whether word fits starting at (row, col) in direction d: the whole span
// stays in bounds and every covered cell is empty or already holds the same letter.
func (g *Grid) canPlace(word string, row, col int, d Direction) bool {
	n := len(word)
	if n == 0 {
		return false
	}
	if !g.inBounds(row, col) || !g.inBounds(row+(n-1)*d.DRow, col+(n-1)*d.DCol) {
		return false
	}
	for i := 0; i < n; i++ {
		cell := g.cells[row+i*d.DRow][col+i*d.DCol]
		if cell != empty && cell != word[i] {
			return false
		}
	}
	return true
}

func (g *Grid) place(word string, row, col int, d Direction) {
	for i := 0; i < len(word); i++ {
		g.cells[row+i*d.DRow][col+i*d.DCol] = word[i]
	}
}

// matchAt reports whether word is spelled starting at (row, col) in direction d.
func (g *Grid) matchAt(word string, row, col int, d Direction) bool {
	for i := 0; i < len(word); i++ {
		r, c := row+i*d.DRow, col+i*d.DCol
		if !g.inBounds(r, c) || g.cells[r][c] != word[i] {
			return false
		}
	}
	return true
}

// Contains reports whether word can be traced anywhere in the grid, in any of the eight
// directions, spelled forwards or backwards. The scan is exhaustive on purpose.
func (g *Grid) Contains(word string) bool {
	word = strings.ToUpper(word)
	if word == "" {
		return false
	}
	reversed := reverse(word)
	for row := 0; row < g.size; row++ {
		for col := 0; col < g.size; col++ {
			for _, d := range Directions {
				if g.matchAt(word, row, col, d) || g.matchAt(reversed, row, col, d) {
					return true
				}
			}
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

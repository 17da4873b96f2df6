package puzzle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource reads puzzles from a JSON or YAML file, chosen by extension.
type FileSource struct {
	Path string
}

// NewFileSource returns a source backed by the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// ListPuzzles implements Source.
func (s *FileSource) ListPuzzles(_ context.Context) ([]Puzzle, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read puzzle file: %w", err)
	}

	var puzzles []Puzzle
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &puzzles); err != nil {
			return nil, fmt.Errorf("parse puzzle yaml %s: %w", s.Path, err)
		}
	default:
		if err := json.Unmarshal(data, &puzzles); err != nil {
			return nil, fmt.Errorf("parse puzzle json %s: %w", s.Path, err)
		}
	}
	return puzzles, nil
}

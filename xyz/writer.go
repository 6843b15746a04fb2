package xyz

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilemark/tile"
)

// Writer implements tile.Writer interface for tiles in XYZ format.
type Writer struct {
	pattern Pattern
}

// NewWriter creates a new Writer for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.png").
func NewWriter(filePattern string) (*Writer, error) {
	pattern, err := ParsePattern(filePattern)
	if err != nil {
		return nil, err
	}
	if pattern.HasSubdomain() {
		return nil, fmt.Errorf("%w: {s} in file pattern", ErrInvalidPattern)
	}
	return &Writer{pattern}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	filePath := w.pattern.Format(tileID, "")

	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, tileData, 0644)
}

func (w *Writer) Finalize() error {
	return nil
}

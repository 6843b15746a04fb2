package selection

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/eak1mov/go-tilemark/tile"
)

// WriteText writes one "z/x/y" address per line. Addresses are written in
// tile.Compare order, so equal sets always produce equal output.
func (s *Set) WriteText(writer io.Writer) error {
	w := bufio.NewWriter(writer)
	buffer := make([]byte, 0, 32)
	for i, id := range s.Sorted() {
		if i > 0 {
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		if _, err := w.Write(id.AppendText(buffer[:0])); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ExportText returns the newline separated list of encoded addresses.
func (s *Set) ExportText() string {
	var b strings.Builder
	_ = s.WriteText(&b)
	return b.String()
}

// ReadText parses a list written by WriteText. Surrounding whitespace and
// blank lines are ignored. A malformed line fails the whole read with an
// error wrapping tile.ErrInvalidFormat.
func ReadText(reader io.Reader) (*Set, error) {
	s := New()
	scanner := bufio.NewScanner(reader)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := tile.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		s.Add(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

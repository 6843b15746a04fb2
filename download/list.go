package download

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/eak1mov/go-tilemark/selection"
	"github.com/eak1mov/go-tilemark/tile"
)

// ReadList reads an exported selection list. Unlike selection.ReadText it
// skips malformed lines, logging each one, so a partly damaged list can
// still be downloaded. Duplicates are dropped and the result is sorted by
// tile.Compare, which keeps neighbouring tiles close together.
func ReadList(reader io.Reader, logger *slog.Logger) ([]tile.ID, int, error) {
	set := selection.New()
	skipped := 0

	scanner := bufio.NewScanner(reader)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := tile.Parse(line)
		if err != nil {
			logger.Error("tilemark: invalid line", "line", lineNumber, "error", err)
			skipped++
			continue
		}
		set.Add(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return set.Sorted(), skipped, nil
}

package xyz

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemark/tile"
)

// Reader implements tile.Reader interface for tiles in XYZ format.
type Reader struct {
	pattern    Pattern
	rootDir    string
	pathRegexp *regexp.Regexp
}

// NewReader creates a new Reader for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.png").
func NewReader(filePattern string) (*Reader, error) {
	pattern, err := ParsePattern(filePattern)
	if err != nil {
		return nil, err
	}
	if pattern.HasSubdomain() {
		return nil, fmt.Errorf("%w: {s} in file pattern", ErrInvalidPattern)
	}

	regexPattern := regexp.QuoteMeta(filePattern)
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{x}"), "(?P<x>\\d+)")
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{y}"), "(?P<y>\\d+)")
	regexPattern = strings.ReplaceAll(regexPattern, regexp.QuoteMeta("{z}"), "(?P<z>\\d+)")
	pathRegex, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	path0 := pattern.Format(tile.ID{X: 0, Y: 0, Z: 0}, "")
	path1 := pattern.Format(tile.ID{X: 1, Y: 1, Z: 1}, "")
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}

	return &Reader{pattern: pattern, rootDir: path0, pathRegexp: pathRegex}, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	filePath := r.pattern.Format(tileID, "")
	tileData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// VisitTiles walks the root directory of the pattern. Files that do not
// match the pattern are skipped.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}

		x, errX := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex("x")], 10, 32)
		y, errY := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex("y")], 10, 32)
		z, errZ := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex("z")], 10, 32)
		tileID := tile.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
		if errX != nil || errY != nil || errZ != nil || !tileID.Valid() {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}

		return visitor(tileID, tileData)
	})
}

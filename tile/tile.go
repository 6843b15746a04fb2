// Package tile provides the tile address type and common tile interfaces.
package tile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxZoom is the deepest level an ID can address.
const MaxZoom = 31

var ErrInvalidFormat = errors.New("tilemark: invalid tile address")

// ID represents tile coordinates in the XYZ scheme (Tiled web map).
type ID struct {
	X uint32
	Y uint32
	Z uint32
}

func (t ID) Valid() bool {
	return t.Z <= MaxZoom && t.X < (1<<t.Z) && t.Y < (1<<t.Z)
}

// String returns the canonical "z/x/y" text form of the tile address.
func (t ID) String() string {
	return string(t.AppendText(nil))
}

func (t ID) AppendText(b []byte) []byte {
	b = strconv.AppendUint(b, uint64(t.Z), 10)
	b = append(b, '/')
	b = strconv.AppendUint(b, uint64(t.X), 10)
	b = append(b, '/')
	b = strconv.AppendUint(b, uint64(t.Y), 10)
	return b
}

func (t ID) MarshalText() ([]byte, error) {
	return t.AppendText(nil), nil
}

func (t *ID) UnmarshalText(text []byte) error {
	id, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}

// Parse decodes a tile address in the canonical "z/x/y" form.
// Fields must be plain decimal numbers without signs or leading zeros,
// so that every valid ID has exactly one text form.
func Parse(s string) (ID, error) {
	fields := strings.Split(s, "/")
	if len(fields) != 3 {
		return ID{}, fmt.Errorf("%w: %q: want 3 fields, got %d", ErrInvalidFormat, s, len(fields))
	}

	var values [3]uint32
	for i, field := range fields {
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, s, err)
		}
		if strconv.FormatUint(v, 10) != field {
			return ID{}, fmt.Errorf("%w: %q: non-canonical number %q", ErrInvalidFormat, s, field)
		}
		values[i] = uint32(v)
	}

	id := ID{X: values[1], Y: values[2], Z: values[0]}
	if !id.Valid() {
		return ID{}, fmt.Errorf("%w: %q: outside of zoom %d", ErrInvalidFormat, s, id.Z)
	}
	return id, nil
}

// Children returns the four tiles covering t at the next zoom level.
func (t ID) Children() [4]ID {
	x, y, z := t.X*2, t.Y*2, t.Z+1
	return [4]ID{
		{X: x, Y: y, Z: z},
		{X: x + 1, Y: y, Z: z},
		{X: x, Y: y + 1, Z: z},
		{X: x + 1, Y: y + 1, Z: z},
	}
}

// Parent returns the tile containing t at the previous zoom level.
// The parent of the root tile is the root tile itself.
func (t ID) Parent() ID {
	if t.Z == 0 {
		return t
	}
	return ID{X: t.X / 2, Y: t.Y / 2, Z: t.Z - 1}
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes metadata and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// It returns an error if visiting fails.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}

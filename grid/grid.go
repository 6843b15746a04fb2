// Package grid maps between map positions and tile addresses at selection
// resolution.
//
// The display grid is the tile grid the map widget renders at its current
// zoom. Selections are tracked Delta levels deeper: every display tile is
// split into 2^Delta x 2^Delta cells, and each cell is one tile of the
// pyramid at level displayZoom+Delta.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/eak1mov/go-tilemark/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	DefaultBaseTileSize = 256
	DefaultDelta        = 3

	// MaxDelta keeps cells at least one pixel wide for the default tile size.
	MaxDelta = 8
)

var (
	ErrInvalidMapper = errors.New("tilemark: invalid grid mapper")
	ErrInvalidZoom   = errors.New("tilemark: zoom out of range")
	ErrOutsideWorld  = errors.New("tilemark: position outside of the world")
)

// PixelPoint is a position in the global pixel space of a zoom level, where
// the whole world spans BaseTileSize * 2^zoom pixels along each axis.
type PixelPoint struct {
	X float64
	Y float64
}

// Mapper converts positions at display zoom into tile addresses at selection
// resolution.
type Mapper struct {
	BaseTileSize int
	Delta        int
}

func NewMapper() Mapper {
	return Mapper{BaseTileSize: DefaultBaseTileSize, Delta: DefaultDelta}
}

func (m Mapper) Validate() error {
	if m.Delta < 0 || m.Delta > MaxDelta {
		return fmt.Errorf("%w: delta %d not in [0, %d]", ErrInvalidMapper, m.Delta, MaxDelta)
	}
	if m.BaseTileSize <= 0 || m.BaseTileSize%(1<<m.Delta) != 0 {
		return fmt.Errorf("%w: tile size %d not divisible by 2^%d", ErrInvalidMapper, m.BaseTileSize, m.Delta)
	}
	return nil
}

// CellSize returns the pixel size of one selection cell at display zoom.
func (m Mapper) CellSize() int {
	return m.BaseTileSize >> m.Delta
}

// Level returns the selection level for the given display zoom.
func (m Mapper) Level(displayZoom int) (uint32, error) {
	level := displayZoom + m.Delta
	if displayZoom < 0 || level > tile.MaxZoom {
		return 0, fmt.Errorf("%w: display zoom %d, delta %d", ErrInvalidZoom, displayZoom, m.Delta)
	}
	return uint32(level), nil
}

// PixelToAddress returns the selection cell containing the pixel at display zoom.
// Coordinates are floored, so a pixel just left of or above a cell edge
// belongs to the neighbouring cell. The map repeats horizontally, so x wraps
// around the antimeridian; y outside of the world is an error.
func (m Mapper) PixelToAddress(p PixelPoint, displayZoom int) (tile.ID, error) {
	level, err := m.Level(displayZoom)
	if err != nil {
		return tile.ID{}, err
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return tile.ID{}, fmt.Errorf("%w: pixel %v", ErrOutsideWorld, p)
	}
	cellSize := float64(m.CellSize())
	x := int64(math.Floor(p.X / cellSize))
	y := int64(math.Floor(p.Y / cellSize))
	return address(level, x, y)
}

// GridCellKey returns the selection address of a display grid cell, as
// passed to the grid layer's tile callback. The grid layer tiles at
// CellSize pixels, so only the level is shifted.
func (m Mapper) GridCellKey(z, x, y int) (tile.ID, error) {
	level, err := m.Level(z)
	if err != nil {
		return tile.ID{}, err
	}
	return address(level, int64(x), int64(y))
}

// ClickToAddress projects a geographic point with the widget's projection and
// maps it to a selection address.
func (m Mapper) ClickToAddress(projector Projector, point orb.Point, displayZoom int) (tile.ID, error) {
	if _, err := m.Level(displayZoom); err != nil {
		return tile.ID{}, err
	}
	return m.PixelToAddress(projector.Project(point, displayZoom), displayZoom)
}

// CellBounds returns the geographic bounds of a selection cell.
func (m Mapper) CellBounds(addr tile.ID) orb.Bound {
	return maptile.New(addr.X, addr.Y, maptile.Zoom(addr.Z)).Bound()
}

// CellLabel returns the text drawn inside a grid cell: its encoded address.
func (m Mapper) CellLabel(addr tile.ID) string {
	return addr.String()
}

// CellPixelBounds returns the pixel rectangle of a selection cell at the
// display zoom it belongs to.
func (m Mapper) CellPixelBounds(addr tile.ID) (topLeft, bottomRight PixelPoint) {
	cellSize := float64(m.CellSize())
	topLeft = PixelPoint{X: float64(addr.X) * cellSize, Y: float64(addr.Y) * cellSize}
	bottomRight = PixelPoint{X: topLeft.X + cellSize, Y: topLeft.Y + cellSize}
	return topLeft, bottomRight
}

func address(level uint32, x, y int64) (tile.ID, error) {
	n := int64(1) << level
	if y < 0 || y >= n {
		return tile.ID{}, fmt.Errorf("%w: row %d at level %d", ErrOutsideWorld, y, level)
	}
	x = ((x % n) + n) % n
	return tile.ID{X: uint32(x), Y: uint32(y), Z: level}, nil
}

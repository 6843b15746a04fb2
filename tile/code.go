package tile

import (
	"cmp"

	"github.com/google/hilbert"
)

// Code returns the position of the tile on a Hilbert curve walking the whole
// pyramid level by level (PMTiles v3 tile numbering). Tiles of lower zoom
// levels always come first, and adjacent codes are spatially adjacent tiles.
func Code(tileID ID) uint64 {
	h, _ := hilbert.NewHilbert(1 << tileID.Z)
	tileCode, _ := h.MapInverse(int(tileID.X), int(tileID.Y))

	tilesCount := (1<<(tileID.Z*2) - 1) / 3
	return uint64(tileCode + tilesCount)
}

// Compare orders tiles by Code, suitable for slices.SortFunc.
func Compare(a, b ID) int {
	return cmp.Compare(Code(a), Code(b))
}

package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Projector converts geographic points to global pixel coordinates at a zoom
// level. The map widget owns the real projection; WebMercator reproduces the
// standard spherical mercator used by slippy maps.
type Projector interface {
	Project(point orb.Point, zoom int) PixelPoint
}

type ProjectorFunc func(point orb.Point, zoom int) PixelPoint

func (f ProjectorFunc) Project(point orb.Point, zoom int) PixelPoint {
	return f(point, zoom)
}

// WebMercator projects EPSG:3857 with square tiles of TileSize pixels.
// Latitudes beyond the mercator limit land outside of the world.
type WebMercator struct {
	TileSize int
}

func (w WebMercator) Project(point orb.Point, zoom int) PixelPoint {
	f := maptile.Fraction(point, maptile.Zoom(zoom))
	size := float64(w.TileSize)
	return PixelPoint{X: f[0] * size, Y: f[1] * size}
}

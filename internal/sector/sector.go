// Package sector turns a unit-cube point into an integer bucket
// address at a given zoom level, and enumerates the 27-neighborhood
// used by the nearest-points query.
package sector

import "github.com/geomesh/proximity/internal/projection"

// ID identifies a cube bucket: the cube is divided into 1<<Zoom
// buckets per axis at this zoom level.
type ID struct {
	IX, IY, IZ int
	Zoom       int
}

// TileSize returns the width of a sector at the given zoom, in
// unit-cube units.
func TileSize(zoom int) float64 {
	return 1.0 / float64(int64(1)<<uint(zoom))
}

// Of buckets a unit-cube point into its sector at the given zoom.
// Neighbor indices may legitimately fall outside [0, 1<<zoom); such
// sectors simply never hold entries.
func Of(c projection.Cube, zoom int) ID {
	n := int(int64(1) << uint(zoom))
	return ID{
		IX:   clampIndex(int(c.X*float64(n)), n),
		IY:   clampIndex(int(c.Y*float64(n)), n),
		IZ:   clampIndex(int(c.Z*float64(n)), n),
		Zoom: zoom,
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Neighbors27 returns the 27 sectors {ix±1, iy±1, iz±1} around s,
// including s itself. Out-of-range sectors are included in the
// result; callers look them up in the cache, where absence is simply
// an empty bucket.
func Neighbors27(s ID) []ID {
	out := make([]ID, 0, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				out = append(out, ID{
					IX:   s.IX + dx,
					IY:   s.IY + dy,
					IZ:   s.IZ + dz,
					Zoom: s.Zoom,
				})
			}
		}
	}
	return out
}

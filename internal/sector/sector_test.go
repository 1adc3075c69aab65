package sector

import (
	"testing"

	"github.com/geomesh/proximity/internal/projection"
	"github.com/stretchr/testify/require"
)

func TestOfClampsToGridEdge(t *testing.T) {
	s := Of(projection.Cube{X: 1.0, Y: 1.0, Z: 1.0}, 3)
	require.Equal(t, 7, s.IX)
	require.Equal(t, 7, s.IY)
	require.Equal(t, 7, s.IZ)
}

func TestOfZoomZeroIsSingleSector(t *testing.T) {
	a := Of(projection.Cube{X: 0.1, Y: 0.9, Z: 0.5}, 0)
	b := Of(projection.Cube{X: 0.99, Y: 0.01, Z: 0.4}, 0)
	require.Equal(t, a, b)
	require.Equal(t, ID{IX: 0, IY: 0, IZ: 0, Zoom: 0}, a)
}

func TestTileSize(t *testing.T) {
	require.Equal(t, 1.0, TileSize(0))
	require.Equal(t, 0.5, TileSize(1))
	require.Equal(t, 0.25, TileSize(2))
}

func TestNeighbors27IncludesCenterAndOutOfRange(t *testing.T) {
	s := ID{IX: 0, IY: 0, IZ: 0, Zoom: 2}
	ns := Neighbors27(s)
	require.Len(t, ns, 27)

	foundCenter := false
	foundNegative := false
	for _, n := range ns {
		if n == s {
			foundCenter = true
		}
		if n.IX < 0 || n.IY < 0 || n.IZ < 0 {
			foundNegative = true
		}
	}
	require.True(t, foundCenter)
	require.True(t, foundNegative)
}

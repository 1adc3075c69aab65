package pointcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/geomesh/proximity/internal/projection"
	"github.com/geomesh/proximity/internal/sector"
	"github.com/stretchr/testify/require"
)

func testKey() Key {
	return Key{App: "T1", Subject: "S0", Sector: sector.ID{IX: 0, IY: 0, IZ: 0, Zoom: 0}}
}

func TestUpdatePointInSectorCapacity(t *testing.T) {
	c := New()
	key := testKey()

	for i := 0; i < MaxPointsPerSector; i++ {
		ok := c.UpdatePointInSector(key, fmt.Sprintf("p%d", i), projection.Cube{}, 0.1)
		require.True(t, ok)
	}

	entries := c.GetPointsInSector(key)
	require.Len(t, entries, MaxPointsPerSector)

	// 126th insert at equal-or-lower priority is rejected, bucket unchanged.
	ok := c.UpdatePointInSector(key, "reject-me", projection.Cube{}, 0.05)
	require.False(t, ok)
	require.Len(t, c.GetPointsInSector(key), MaxPointsPerSector)

	// Higher priority evicts exactly one resident.
	ok = c.UpdatePointInSector(key, "admit-me", projection.Cube{}, 0.9)
	require.True(t, ok)
	entries = c.GetPointsInSector(key)
	require.Len(t, entries, MaxPointsPerSector)

	found := false
	for _, e := range entries {
		if e.PointID == "admit-me" {
			found = true
		}
	}
	require.True(t, found)
}

func TestUpdatePointInSectorUniqueness(t *testing.T) {
	c := New()
	key := testKey()

	require.True(t, c.UpdatePointInSector(key, "p0", projection.Cube{X: 0.1}, 0.5))
	require.True(t, c.UpdatePointInSector(key, "p0", projection.Cube{X: 0.2}, 0.9))

	entries := c.GetPointsInSector(key)
	require.Len(t, entries, 1)
	require.Equal(t, 0.2, entries[0].Coord.X)
	require.Equal(t, 0.9, entries[0].Priority)
}

func TestUpdateReplacesRegardlessOfPriorityFloor(t *testing.T) {
	c := New()
	key := testKey()

	for i := 0; i < MaxPointsPerSector; i++ {
		require.True(t, c.UpdatePointInSector(key, fmt.Sprintf("p%d", i), projection.Cube{}, 0.5))
	}

	// Updating an existing resident with a LOWER priority still
	// succeeds: it is a replace, not an admission.
	ok := c.UpdatePointInSector(key, "p0", projection.Cube{}, 0.01)
	require.True(t, ok)
	require.Len(t, c.GetPointsInSector(key), MaxPointsPerSector)
}

func TestTTLExpiry(t *testing.T) {
	c := New()
	key := testKey()

	start := time.Unix(0, 0)
	c.now = func() time.Time { return start }
	require.True(t, c.UpdatePointInSector(key, "p0", projection.Cube{}, 0.5))

	c.now = func() time.Time { return start.Add(59900 * time.Millisecond) }
	require.Len(t, c.GetPointsInSector(key), 1)

	c.now = func() time.Time { return start.Add(60100 * time.Millisecond) }
	require.Empty(t, c.GetPointsInSector(key))
}

func TestGetPointsInSectorAbsentKeyIsEmpty(t *testing.T) {
	c := New()
	require.Empty(t, c.GetPointsInSector(testKey()))
}

func TestIdempotentUpdateModuloExpiry(t *testing.T) {
	c := New()
	key := testKey()
	coord := projection.Cube{X: 0.4, Y: 0.4, Z: 0.4}

	require.True(t, c.UpdatePointInSector(key, "p0", coord, 0.7))
	first := c.GetPointsInSector(key)

	require.True(t, c.UpdatePointInSector(key, "p0", coord, 0.7))
	second := c.GetPointsInSector(key)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.Equal(t, first[0].PointID, second[0].PointID)
	require.Equal(t, first[0].Coord, second[0].Coord)
	require.Equal(t, first[0].Priority, second[0].Priority)
}

func TestPriorityFloorInvariantOnRejection(t *testing.T) {
	c := New()
	key := testKey()

	for i := 0; i < MaxPointsPerSector; i++ {
		require.True(t, c.UpdatePointInSector(key, fmt.Sprintf("p%d", i), projection.Cube{}, 0.9))
	}

	ok := c.UpdatePointInSector(key, "low", projection.Cube{}, 0.1)
	require.False(t, ok)

	for _, e := range c.GetPointsInSector(key) {
		require.GreaterOrEqual(t, e.Priority, 0.1)
	}
}

func TestConcurrentUpdatesDoNotTearEntries(t *testing.T) {
	c := New()
	key := testKey()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				c.UpdatePointInSector(key, "shared", projection.Cube{X: float64(i)}, float64(i))
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	entries := c.GetPointsInSector(key)
	require.Len(t, entries, 1)
}

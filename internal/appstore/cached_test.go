package appstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/geomesh/proximity/internal/projection"
)

func newTestCachedStore(t *testing.T) (*CachedStore, *Memory) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backing := NewMemory()
	return NewCachedStore(backing, client), backing
}

func TestCachedStoreTenantConfigReadThrough(t *testing.T) {
	cs, backing := newTestCachedStore(t)
	backing.Seed("app1", "auth-key", []byte("secret"), 7)
	ctx := context.Background()

	authKey, err := cs.GetAuthKey(ctx, "app1")
	require.NoError(t, err)
	require.Equal(t, "auth-key", authKey)

	zoom, err := cs.GetMaxZoomLevel(ctx, "app1")
	require.NoError(t, err)
	require.Equal(t, 7, zoom)
}

func TestCachedStorePointCoordReadThroughAndInvalidate(t *testing.T) {
	cs, backing := newTestCachedStore(t)
	backing.Seed("app1", "auth", nil, 5)
	ctx := context.Background()
	require.NoError(t, backing.AddPoint(ctx, "app1", "p0"))

	c := projection.Cube{X: 0.25, Y: 0.5, Z: 0.75}
	require.NoError(t, cs.SetPointCoord(ctx, "app1", "p0", c))

	coords, err := cs.GetPointsCoords(ctx, "app1", []string{"p0"})
	require.NoError(t, err)
	require.Len(t, coords, 1)
	require.Equal(t, c, coords[0].Coord)

	// Second read should be served from cache and still match.
	coords, err = cs.GetPointsCoords(ctx, "app1", []string{"p0"})
	require.NoError(t, err)
	require.Len(t, coords, 1)
	require.Equal(t, c, coords[0].Coord)

	// A write through the wrapper invalidates the cached coordinate.
	moved := projection.Cube{X: 0.3, Y: 0.6, Z: 0.9}
	require.NoError(t, cs.SetPointCoord(ctx, "app1", "p0", moved))
	coords, err = cs.GetPointsCoords(ctx, "app1", []string{"p0"})
	require.NoError(t, err)
	require.Len(t, coords, 1)
	require.Equal(t, moved, coords[0].Coord)
}

func TestCachedStoreUnknownTenantNotFound(t *testing.T) {
	cs, _ := newTestCachedStore(t)
	_, err := cs.GetAuthKey(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

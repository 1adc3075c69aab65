package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/pointcache"
	"github.com/geomesh/proximity/internal/projection"
)

func newTestWorld(t *testing.T, app string, maxZoom int) (*World, *appstore.Memory) {
	t.Helper()
	store := appstore.NewMemory()
	store.Seed(app, "auth-key", []byte("hmac-key"), maxZoom)
	return NewWorld(store, pointcache.New()), store
}

func addPoint(t *testing.T, store *appstore.Memory, app, pointID string, subjects []appstore.Subject) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AddPoint(ctx, app, pointID))
	require.NoError(t, store.SetPointSubjects(ctx, app, pointID, subjects))
}

// Scenario 1: empty index query.
func TestNearestPointsEmptyIndex(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	addPoint(t, store, "T1", "P0", []appstore.Subject{{SubjectID: "S0", Priority: 0.5}})

	results, err := w.NearestPoints(context.Background(), "T1", "P0", "S0",
		&projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}, 0, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

// Scenario 2: single-point self-match.
func TestNearestPointsSelfMatch(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	addPoint(t, store, "T1", "P0", []appstore.Subject{{SubjectID: "S0", Priority: 0.5}})
	ctx := context.Background()

	origin := projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}
	require.NoError(t, w.UpdatePoint(ctx, "T1", "P0", origin))

	results, err := w.NearestPoints(ctx, "T1", "P0", "S0", &origin, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "P0", results[0].PointID)
	require.InDelta(t, 0, results[0].Distance, 1e-9)
}

// Scenario 3: priority eviction at maxZoom=0.
func TestUpdatePointPriorityEviction(t *testing.T) {
	w, store := newTestWorld(t, "T1", 0)
	ctx := context.Background()

	for i := 0; i < pointcache.MaxPointsPerSector; i++ {
		id := fmt.Sprintf("p%d", i)
		addPoint(t, store, "T1", id, []appstore.Subject{{SubjectID: "S0", Priority: 0.1}})
		require.NoError(t, w.UpdatePoint(ctx, "T1", id, projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}))
	}

	addPoint(t, store, "T1", "low", []appstore.Subject{{SubjectID: "S0", Priority: 0.05}})
	require.NoError(t, w.UpdatePoint(ctx, "T1", "low", projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}))

	results, err := w.NearestPoints(ctx, "T1", "low", "S0", &projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}, 0, 1000)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, "low", r.PointID)
	}

	addPoint(t, store, "T1", "high", []appstore.Subject{{SubjectID: "S0", Priority: 0.9}})
	require.NoError(t, w.UpdatePoint(ctx, "T1", "high", projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}))

	results, err = w.NearestPoints(ctx, "T1", "high", "S0", &projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}, 0, 1000)
	require.NoError(t, err)
	require.Len(t, results, pointcache.MaxPointsPerSector)
	found := false
	for _, r := range results {
		if r.PointID == "high" {
			found = true
		}
	}
	require.True(t, found)
}

// Scenario 6: radius-driven initial zoom.
func TestStartingZoomFromRadius(t *testing.T) {
	require.Equal(t, 6, startingZoom(100000, 20))
}

func TestStartingZoomNoRadiusUsesMaxZoom(t *testing.T) {
	require.Equal(t, 7, startingZoom(0, 7))
}

func TestUpdatePointRejectsUnknownPoint(t *testing.T) {
	w, _ := newTestWorld(t, "T1", 4)
	err := w.UpdatePoint(context.Background(), "T1", "ghost", projection.Geodetic{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPointsCoordsSkipsMissingAndSortsByDistance(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	ctx := context.Background()

	addPoint(t, store, "T1", "near", nil)
	addPoint(t, store, "T1", "far", nil)
	require.NoError(t, store.SetPointCoord(ctx, "T1", "near", mustCube(t, 0, 0, 0)))
	require.NoError(t, store.SetPointCoord(ctx, "T1", "far", mustCube(t, 10, 10, 0)))

	origin := projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}
	results, err := w.PointsCoords(ctx, "T1", "near", []string{"far", "near", "missing"}, &origin, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "near", results[0].PointID)
	require.Equal(t, "far", results[1].PointID)
}

func TestMonotonicCandidateGrowthAcrossZoomDescent(t *testing.T) {
	w, store := newTestWorld(t, "T1", 3)
	ctx := context.Background()
	addPoint(t, store, "T1", "P0", []appstore.Subject{{SubjectID: "S0", Priority: 0.5}})
	require.NoError(t, w.UpdatePoint(ctx, "T1", "P0", projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}))

	// A tight limit of 1 still finds P0 regardless of starting zoom,
	// since candidates only ever accumulate on the way down.
	results, err := w.NearestPoints(ctx, "T1", "P0", "S0", &projection.Geodetic{Lat: 0, Lon: 0, Elev: 0}, 0, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "P0", results[0].PointID)
}

func mustCube(t *testing.T, lat, lon, elev float64) projection.Cube {
	t.Helper()
	c, err := projection.ToUnitCube(projection.Geodetic{Lat: lat, Lon: lon, Elev: elev})
	require.NoError(t, err)
	return c
}

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/projection"
	"github.com/geomesh/proximity/internal/token"
)

func TestCallUpdatePointEndToEnd(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	ctx := context.Background()
	addPoint(t, store, "T1", "P0", []appstore.Subject{{SubjectID: "S0", Priority: 0.5}})

	appTok := token.MintAppToken("T1", "auth-key")
	geoTok, err := w.GetUpdatePointAuthToken(ctx, appTok, "P0")
	require.NoError(t, err)

	hmacKey, err := store.GetHMACKey(ctx, "T1")
	require.NoError(t, err)

	coord := projection.Geodetic{Lat: 10, Lon: 20, Elev: 0}
	_, err = w.Call(ctx, geoTok, hmacKey, CallArgs{Coord: &coord})
	require.NoError(t, err)

	results, err := w.NearestPoints(ctx, "T1", "P0", "S0", &coord, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestCallRejectsWrongAppAuthKey(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	ctx := context.Background()
	addPoint(t, store, "T1", "P0", nil)

	_, err := w.GetUpdatePointAuthToken(ctx, token.MintAppToken("T1", "wrong-key"), "P0")
	require.ErrorIs(t, err, ErrAuthFailed)
}

// Token binding invariant (spec §8): a token minted for subject=S1
// must not be silently cross-routed to subject=S2.
func TestTokenBindingPreventsSubjectCrossRouting(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	ctx := context.Background()
	addPoint(t, store, "T1", "P0", []appstore.Subject{
		{SubjectID: "S1", Priority: 0.5},
		{SubjectID: "S2", Priority: 0.5},
	})

	coord := projection.Geodetic{Lat: 5, Lon: 5, Elev: 0}
	require.NoError(t, w.UpdatePoint(ctx, "T1", "P0", coord))

	appTok := token.MintAppToken("T1", "auth-key")
	geoTok, err := w.GetNearestPointsAuthToken(ctx, appTok, "P0", "S1")
	require.NoError(t, err)

	hmacKey, err := store.GetHMACKey(ctx, "T1")
	require.NoError(t, err)

	result, err := w.Call(ctx, geoTok, hmacKey, CallArgs{Coord: &coord})
	require.NoError(t, err)
	points := result.([]NearestPoint)
	require.Len(t, points, 1)
	require.Equal(t, "P0", points[0].PointID)

	// The token's signed subject (S1) is what's consulted — there is
	// no kwarg that lets a caller override it to S2.
}

func TestCallRejectsMismatchedHMACKey(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	ctx := context.Background()
	addPoint(t, store, "T1", "P0", []appstore.Subject{{SubjectID: "S0", Priority: 0.5}})

	appTok := token.MintAppToken("T1", "auth-key")
	geoTok, err := w.GetUpdatePointAuthToken(ctx, appTok, "P0")
	require.NoError(t, err)

	coord := projection.Geodetic{Lat: 1, Lon: 1, Elev: 0}
	_, err = w.Call(ctx, geoTok, []byte("wrong-hmac-key"), CallArgs{Coord: &coord})
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestCallRejectsPointsCoordsWithoutCoordOrAnchor(t *testing.T) {
	w, store := newTestWorld(t, "T1", 4)
	ctx := context.Background()
	addPoint(t, store, "T1", "P0", nil)

	appTok := token.MintAppToken("T1", "auth-key")
	geoTok, err := w.GetPointsCoordsAuthToken(ctx, appTok, "P0", []string{"P0"})
	require.NoError(t, err)

	hmacKey, err := store.GetHMACKey(ctx, "T1")
	require.NoError(t, err)

	// P0 has no published coord and none supplied in args -> NotFound.
	_, err = w.Call(ctx, geoTok, hmacKey, CallArgs{})
	require.ErrorIs(t, err, ErrNotFound)
}

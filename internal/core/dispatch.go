package core

import (
	"context"
	"errors"
	"strings"

	"github.com/geomesh/proximity/internal/projection"
	"github.com/geomesh/proximity/internal/token"
)

// pointIDSeparator joins a POINTS_COORDS token's bound point id list
// into the single string value token.GeoClaims.Params carries.
const pointIDSeparator = ","

// EncodePointIDs packs a point id list into a token param value.
func EncodePointIDs(ids []string) string { return strings.Join(ids, pointIDSeparator) }

// DecodePointIDs is the inverse of EncodePointIDs.
func DecodePointIDs(encoded string) []string {
	if encoded == "" {
		return nil
	}
	return strings.Split(encoded, pointIDSeparator)
}

// CallArgs are the per-invocation kwargs that are NOT bound into the
// token: they may legitimately differ across repeated calls with the
// same token (e.g. polling at different radii).
type CallArgs struct {
	Coord       *projection.Geodetic
	Radius      float64
	PointsLimit int
}

// Call validates tok against hmacKey and dispatches to the method
// bound inside its claims. The method and its identifying parameters
// (subject for NEAREST_POINTS, the point id list for POINTS_COORDS)
// come from the signed token; only the tunable kwargs in args are
// caller-supplied per call.
func (w *World) Call(ctx context.Context, tok token.GeoToken, hmacKey []byte, args CallArgs) (interface{}, error) {
	claims, err := token.ValidateGeoToken(hmacKey, w.clock(), tok)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrAuthFailed):
			return nil, ErrAuthFailed
		case errors.Is(err, token.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, err
		}
	}

	has, err := w.Store.HasPoint(ctx, claims.App, claims.Point)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !has {
		return nil, ErrNotFound
	}

	switch claims.Method {
	case token.UpdatePoint:
		if args.Coord == nil {
			return nil, ErrInvalidArgument
		}
		return nil, w.UpdatePoint(ctx, claims.App, claims.Point, *args.Coord)

	case token.NearestPoints:
		subject := claims.Params["subject"]
		return w.NearestPoints(ctx, claims.App, claims.Point, subject, args.Coord, args.Radius, args.PointsLimit)

	case token.PointsCoords:
		ids := DecodePointIDs(claims.Params["point_ids"])
		return w.PointsCoords(ctx, claims.App, claims.Point, ids, args.Coord, args.Radius, args.PointsLimit)

	default:
		return nil, ErrInvalidArgument
	}
}

package core

import (
	"context"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/token"
)

// CreatePoint adds point to app's roster, gated by an app token.
func (w *World) CreatePoint(ctx context.Context, appTok token.AppToken, pointID string) error {
	if err := w.authorizeApp(ctx, appTok); err != nil {
		return err
	}
	return mapStoreErr(w.Store.AddPoint(ctx, appTok.App, pointID))
}

// DeletePoint removes point from app's roster, gated by an app token.
func (w *World) DeletePoint(ctx context.Context, appTok token.AppToken, pointID string) error {
	if err := w.authorizeApp(ctx, appTok); err != nil {
		return err
	}
	return mapStoreErr(w.Store.DeletePoint(ctx, appTok.App, pointID))
}

// SetPointSubjects replaces point's subject list, gated by an app token.
func (w *World) SetPointSubjects(ctx context.Context, appTok token.AppToken, pointID string, subjects []appstore.Subject) error {
	if err := w.authorizeApp(ctx, appTok); err != nil {
		return err
	}
	return mapStoreErr(w.Store.SetPointSubjects(ctx, appTok.App, pointID, subjects))
}

// GetUpdatePointAuthToken mints a geo token scoped to UPDATE_POINT on
// pointID. UPDATE_POINT binds no extra params — the coord supplied
// per-call is the only thing that varies between uses.
func (w *World) GetUpdatePointAuthToken(ctx context.Context, appTok token.AppToken, pointID string) (token.GeoToken, error) {
	return w.mintGeoToken(ctx, appTok, pointID, token.UpdatePoint, nil)
}

// GetNearestPointsAuthToken mints a geo token scoped to NEAREST_POINTS
// on pointID, binding subjectID into the signed claims.
func (w *World) GetNearestPointsAuthToken(ctx context.Context, appTok token.AppToken, pointID, subjectID string) (token.GeoToken, error) {
	return w.mintGeoToken(ctx, appTok, pointID, token.NearestPoints, map[string]string{"subject": subjectID})
}

// GetPointsCoordsAuthToken mints a geo token scoped to POINTS_COORDS
// on pointID, binding the requested point id list into the signed
// claims.
func (w *World) GetPointsCoordsAuthToken(ctx context.Context, appTok token.AppToken, pointID string, pointIDs []string) (token.GeoToken, error) {
	return w.mintGeoToken(ctx, appTok, pointID, token.PointsCoords, map[string]string{"point_ids": EncodePointIDs(pointIDs)})
}

func (w *World) mintGeoToken(ctx context.Context, appTok token.AppToken, pointID string, method token.Method, params map[string]string) (token.GeoToken, error) {
	if err := w.authorizeApp(ctx, appTok); err != nil {
		return token.GeoToken{}, err
	}
	hmacKey, err := w.Store.GetHMACKey(ctx, appTok.App)
	if err != nil {
		return token.GeoToken{}, mapStoreErr(err)
	}
	return token.MintGeoToken(hmacKey, w.clock(), appTok.App, pointID, method, params), nil
}

func (w *World) authorizeApp(ctx context.Context, appTok token.AppToken) error {
	storedKey, err := w.Store.GetAuthKey(ctx, appTok.App)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := token.ValidateAppToken(storedKey, appTok); err != nil {
		return ErrAuthFailed
	}
	return nil
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/core"
	"github.com/geomesh/proximity/internal/token"
)

// appTokenFromRequest reads the management credential from the
// Authorization header, expected as "Bearer <auth_key>".
func appTokenFromRequest(r *http.Request, app string) token.AppToken {
	authKey := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authKey) > len(prefix) && authKey[:len(prefix)] == prefix {
		authKey = authKey[len(prefix):]
	}
	return token.MintAppToken(app, authKey)
}

func writeCoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrAuthFailed):
		RespondUnauthorized(w, r, "invalid app credentials")
	case errors.Is(err, core.ErrTokenExpired):
		RespondUnauthorized(w, r, "token expired")
	case errors.Is(err, core.ErrNotFound), errors.Is(err, appstore.ErrNotFound):
		RespondNotFound(w, r, "resource not found")
	case errors.Is(err, core.ErrInvalidArgument):
		RespondBadRequest(w, r, err.Error())
	default:
		RespondInternalError(w, r, err.Error())
	}
}

//	@Summary		Create a point
//	@Tags			Management
//	@Param			app		path	string				true	"Tenant id"
//	@Param			request	body	object{point_id=string}	true	"Point id to create"
//	@Success		201	{object}	map[string]string
//	@Failure		401	{object}	envelope
//	@Router			/apps/{app}/points [post]
func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	var body struct {
		PointID string `json:"point_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondBadRequest(w, r, "invalid request body")
		return
	}
	appTok := appTokenFromRequest(r, app)
	if err := s.World.CreatePoint(r.Context(), appTok, body.PointID); err != nil {
		writeCoreError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusCreated, map[string]string{"point_id": body.PointID})
}

//	@Summary		Delete a point
//	@Tags			Management
//	@Param			app		path	string	true	"Tenant id"
//	@Param			point	path	string	true	"Point id"
//	@Success		204
//	@Failure		404	{object}	envelope
//	@Router			/apps/{app}/points/{point} [delete]
func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	point := chi.URLParam(r, "point")
	appTok := appTokenFromRequest(r, app)
	if err := s.World.DeletePoint(r.Context(), appTok, point); err != nil {
		writeCoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

//	@Summary		Replace a point's subjects
//	@Tags			Management
//	@Param			app		path	string					true	"Tenant id"
//	@Param			point	path	string					true	"Point id"
//	@Param			request	body	object{subjects=[]appstore.Subject}	true	"Subjects and their priorities"
//	@Success		200	{object}	map[string]string
//	@Router			/apps/{app}/points/{point}/subjects [put]
func (s *Server) handleSetPointSubjects(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	point := chi.URLParam(r, "point")

	var body struct {
		Subjects []appstore.Subject `json:"subjects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondBadRequest(w, r, "invalid request body")
		return
	}

	appTok := appTokenFromRequest(r, app)
	if err := s.World.SetPointSubjects(r.Context(), appTok, point, body.Subjects); err != nil {
		writeCoreError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, map[string]string{"point_id": point})
}

//	@Summary		Mint an UPDATE_POINT token
//	@Tags			Tokens
//	@Param			app		path	string	true	"Tenant id"
//	@Param			point	path	string	true	"Point id the token is scoped to"
//	@Success		200	{object}	token.GeoToken
//	@Router			/apps/{app}/points/{point}/tokens/update [post]
func (s *Server) handleMintUpdateToken(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	point := chi.URLParam(r, "point")
	appTok := appTokenFromRequest(r, app)

	geoTok, err := s.World.GetUpdatePointAuthToken(r.Context(), appTok, point)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, geoTok)
}

//	@Summary		Mint a NEAREST_POINTS token
//	@Tags			Tokens
//	@Param			app		path	string						true	"Tenant id"
//	@Param			point	path	string						true	"Anchor point id"
//	@Param			request	body	object{subject_id=string}	true	"Subject the token is bound to"
//	@Success		200	{object}	token.GeoToken
//	@Router			/apps/{app}/points/{point}/tokens/nearest [post]
func (s *Server) handleMintNearestToken(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	point := chi.URLParam(r, "point")
	var body struct {
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondBadRequest(w, r, "invalid request body")
		return
	}

	appTok := appTokenFromRequest(r, app)
	geoTok, err := s.World.GetNearestPointsAuthToken(r.Context(), appTok, point, body.SubjectID)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, geoTok)
}

//	@Summary		Mint a POINTS_COORDS token
//	@Tags			Tokens
//	@Param			app		path	string						true	"Tenant id"
//	@Param			point	path	string						true	"Anchor point id"
//	@Param			request	body	object{point_ids=[]string}	true	"Point ids the token is bound to"
//	@Success		200	{object}	token.GeoToken
//	@Router			/apps/{app}/points/{point}/tokens/coords [post]
func (s *Server) handleMintCoordsToken(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	point := chi.URLParam(r, "point")
	var body struct {
		PointIDs []string `json:"point_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondBadRequest(w, r, "invalid request body")
		return
	}

	appTok := appTokenFromRequest(r, app)
	geoTok, err := s.World.GetPointsCoordsAuthToken(r.Context(), appTok, point, body.PointIDs)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, geoTok)
}

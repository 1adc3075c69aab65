package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/geomesh/proximity/internal/core"
	"github.com/geomesh/proximity/internal/projection"
	"github.com/geomesh/proximity/internal/token"
)

// callRequest is the wire shape of a geo surface invocation: the
// signed token plus the per-call kwargs the spec allows to vary
// (coord, radius, points_limit).
type callRequest struct {
	Token       token.GeoToken `json:"token"`
	Coord       *geodeticJSON  `json:"coord,omitempty"`
	Radius      float64        `json:"radius,omitempty"`
	PointsLimit int            `json:"points_limit,omitempty"`
}

type geodeticJSON struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Elev float64 `json:"elev"`
}

// handleCall is the single entry point for the geo surface: UPDATE_POINT,
// NEAREST_POINTS, and POINTS_COORDS are all dispatched here based on
// the method bound inside req.Token, never on anything the caller
// supplies directly.
//
// The HMAC key is never accepted from the caller: it is looked up
// server-side from the tenant's AppStorage record using the (public,
// unsigned) app field inside the token's claims. Accepting a
// caller-supplied key would let anyone self-sign a token, defeating
// the whole scheme.
//	@Summary		Invoke a geo surface method
//	@Description	Dispatches UPDATE_POINT, NEAREST_POINTS, or POINTS_COORDS based on the method bound inside the signed token.
//	@Tags			Geo
//	@Param			request	body	callRequest	true	"Signed token plus per-call kwargs"
//	@Success		200	{object}	envelope
//	@Failure		401	{object}	envelope
//	@Failure		429	{object}	envelope
//	@Router			/call [post]
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondBadRequest(w, r, "invalid request body")
		return
	}

	hmacKey, err := s.World.Store.GetHMACKey(r.Context(), req.Token.Claims.App)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	if s.RateLimiter != nil {
		result, err := s.RateLimiter.Check(r.Context(), req.Token.Claims.App)
		if err == nil && !result.Allowed {
			RespondRateLimitError(w, r, "too many requests", result.RetryAfter)
			return
		}
	}

	args := core.CallArgs{Radius: req.Radius, PointsLimit: req.PointsLimit}
	if req.Coord != nil {
		args.Coord = &projection.Geodetic{Lat: req.Coord.Lat, Lon: req.Coord.Lon, Elev: req.Coord.Elev}
	}

	result, err := s.World.Call(r.Context(), req.Token, hmacKey, args)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, result)
}

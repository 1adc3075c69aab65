package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/geomesh/proximity/internal/snapshot"
)

// SnapshotStore is the subset of snapshot.Store the ops surface needs,
// kept as an interface so a Server can run with snapshot export
// disabled (nil field).
type SnapshotStore interface {
	Export(ctx context.Context, roster snapshot.Roster) error
}

// handleOpsSnapshot triggers a roster export for app to S3. The
// point id list to export is read from the query string since the
// core has no "list all points" operation — rosters are built
// incrementally by whatever system of record invoked CreatePoint.
//	@Summary		Export a tenant's roster to S3
//	@Tags			Ops
//	@Security		BearerAuth
//	@Param			app			path	string		true	"Tenant id"
//	@Param			point_id	query	[]string	false	"Point ids to include (repeatable)"
//	@Success		200	{object}	map[string]int
//	@Failure		503	{object}	envelope
//	@Router			/ops/apps/{app}/snapshot [get]
func (s *Server) handleOpsSnapshot(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	if s.Snapshots == nil {
		RespondServiceUnavailable(w, r, "snapshot export not configured")
		return
	}

	pointIDs := r.URL.Query()["point_id"]
	roster, err := snapshot.BuildRoster(r.Context(), s.World.Store, app, pointIDs, time.Now())
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	if err := s.Snapshots.Export(r.Context(), roster); err != nil {
		RespondInternalError(w, r, err.Error())
		return
	}
	RespondJSON(w, r, http.StatusOK, map[string]int{"points_exported": len(roster.Points)})
}

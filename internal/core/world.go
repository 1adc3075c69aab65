// Package core implements the three geo operations (UpdatePoint,
// NearestPoints, PointsCoords) and the token-gated dispatch that binds
// them together, parameterized over an opaque World so independent
// tests (and independent tenants, in a single process) never share
// state.
package core

import (
	"time"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/pointcache"
)

// EarthRadiusMeters mirrors projection.EarthRadiusMeters; duplicated
// here as the reporting-scale constant so this package doesn't need
// to reach into projection just for R.
const EarthRadiusMeters = 6_371_000.0

// DefaultPointsLimit is used when a caller does not supply
// points_limit.
const DefaultPointsLimit = 100

// World bundles the AppStorage collaborator and the PointCache engine
// the core operates over. The process-global singletons in the
// original implementation become this explicit value so multiple
// tenants — or multiple tests — can run against independent worlds.
type World struct {
	Store appstore.Store
	Cache *pointcache.Cache

	// now is overridable by tests; production code leaves it nil.
	now func() time.Time
}

// NewWorld builds a World over the given collaborators.
func NewWorld(store appstore.Store, cache *pointcache.Cache) *World {
	return &World{Store: store, Cache: cache}
}

func (w *World) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

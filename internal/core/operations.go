package core

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/geomesh/proximity/internal/pointcache"
	"github.com/geomesh/proximity/internal/projection"
	"github.com/geomesh/proximity/internal/sector"
)

// UpdatePoint projects coord, publishes it to AppStorage, and climbs
// every subject's sector hierarchy from the tenant's max zoom down to
// zero, stopping a subject's climb the first time PointCache rejects
// the admission (spec's "zoom-climb" heuristic).
func (w *World) UpdatePoint(ctx context.Context, app, point string, coord projection.Geodetic) error {
	xyz, err := projection.ToUnitCube(coord)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	has, err := w.Store.HasPoint(ctx, app, point)
	if err != nil {
		return mapStoreErr(err)
	}
	if !has {
		return ErrNotFound
	}

	subjects, err := w.Store.GetPointSubjects(ctx, app, point)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := w.Store.SetPointCoord(ctx, app, point, xyz); err != nil {
		return mapStoreErr(err)
	}
	maxZoom, err := w.Store.GetMaxZoomLevel(ctx, app)
	if err != nil {
		return mapStoreErr(err)
	}

	for _, subj := range subjects {
		for z := maxZoom; ; z-- {
			sec := sector.Of(xyz, z)
			key := pointcache.Key{App: app, Subject: subj.SubjectID, Sector: sec}
			if !w.Cache.UpdatePointInSector(key, point, xyz, subj.Priority) {
				break
			}
			if z == 0 {
				break
			}
		}
	}
	return nil
}

// NearestPoint is one result row of a NearestPoints call.
type NearestPoint struct {
	PointID  string
	Coord    projection.Geodetic
	Priority float64
	Distance float64
}

// resolveQueryCoord implements the coord-or-lookup resolution shared
// by NearestPoints and PointsCoords: use the caller-supplied coord if
// given, else fall back to the anchor point's last published
// coordinate.
func (w *World) resolveQueryCoord(ctx context.Context, app, anchorPoint string, coord *projection.Geodetic) (projection.Cube, error) {
	if coord != nil {
		return projection.ToUnitCube(*coord)
	}
	coords, err := w.Store.GetPointsCoords(ctx, app, []string{anchorPoint})
	if err != nil {
		return projection.Cube{}, mapStoreErr(err)
	}
	if len(coords) == 0 {
		return projection.Cube{}, ErrNotFound
	}
	return coords[0].Coord, nil
}

func startingZoom(radius float64, maxZoom int) int {
	if radius <= 0 {
		return maxZoom
	}
	mult := (2 * EarthRadiusMeters) / radius
	z := int(math.Floor(math.Log2(mult)))
	if z < 0 {
		z = 0
	}
	if z > maxZoom {
		z = maxZoom
	}
	return z
}

// NearestPoints implements spec's zoom-descend: it starts at a zoom
// derived from radius (or the tenant's max zoom), accumulates
// candidates across the 27-neighborhood at each level, and descends
// until either the filtered set overflows the limit or z hits 0. The
// candidate set only ever grows across iterations.
func (w *World) NearestPoints(ctx context.Context, app, anchorPoint, subject string, coord *projection.Geodetic, radius float64, pointsLimit int) ([]NearestPoint, error) {
	if pointsLimit < 0 {
		return nil, ErrInvalidArgument
	}
	limit := pointsLimit
	if limit == 0 {
		limit = DefaultPointsLimit
	}

	xyz, err := w.resolveQueryCoord(ctx, app, anchorPoint, coord)
	if err != nil {
		return nil, err
	}

	maxZoom, err := w.Store.GetMaxZoomLevel(ctx, app)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	candidates := make(map[string]candidateEntry)

	for zoom := startingZoom(radius, maxZoom); ; zoom-- {
		sec := sector.Of(xyz, zoom)
		for _, n := range sector.Neighbors27(sec) {
			key := pointcache.Key{App: app, Subject: subject, Sector: n}
			for _, e := range w.Cache.GetPointsInSector(key) {
				existing, ok := candidates[e.PointID]
				if ok && !e.ExpireAt.After(existing.entry.ExpireAt) {
					continue
				}
				candidates[e.PointID] = candidateEntry{
					entry:    e,
					distance: projection.Distance(xyz, e.Coord),
				}
			}
		}

		filtered := filterByTileSize(candidates, sector.TileSize(zoom))
		if len(filtered) > limit || zoom == 0 {
			sort.Slice(filtered, func(i, j int) bool { return filtered[i].distance < filtered[j].distance })
			if len(filtered) > limit {
				filtered = filtered[:limit]
			}
			return toNearestPoints(filtered), nil
		}
	}
}

type candidateEntry struct {
	entry    pointcache.Entry
	distance float64
}

type filteredCandidate struct {
	pointID  string
	coord    projection.Cube
	priority float64
	distance float64
}

func filterByTileSize(candidates map[string]candidateEntry, tileSize float64) []filteredCandidate {
	out := make([]filteredCandidate, 0, len(candidates))
	for id, c := range candidates {
		if c.distance < tileSize {
			out = append(out, filteredCandidate{
				pointID:  id,
				coord:    c.entry.Coord,
				priority: c.entry.Priority,
				distance: c.distance,
			})
		}
	}
	return out
}

func toNearestPoints(filtered []filteredCandidate) []NearestPoint {
	out := make([]NearestPoint, len(filtered))
	for i, c := range filtered {
		out[i] = NearestPoint{
			PointID:  c.pointID,
			Coord:    projection.FromUnitCube(c.coord),
			Priority: c.priority,
			Distance: projection.ReportDistance(c.distance),
		}
	}
	return out
}

// CoordResult is one result row of a PointsCoords call.
type CoordResult struct {
	PointID  string
	Coord    projection.Geodetic
	Distance float64
}

// PointsCoords resolves a query coordinate the same way NearestPoints
// does, then looks up the requested ids directly in AppStorage
// (bypassing PointCache entirely — this is a roster lookup, not a
// proximity search), optionally filters by radius, and truncates to
// pointsLimit.
func (w *World) PointsCoords(ctx context.Context, app, anchorPoint string, pointIDs []string, coord *projection.Geodetic, radius float64, pointsLimit int) ([]CoordResult, error) {
	if pointsLimit < 0 {
		return nil, ErrInvalidArgument
	}

	xyz, err := w.resolveQueryCoord(ctx, app, anchorPoint, coord)
	if err != nil {
		return nil, err
	}

	pcs, err := w.Store.GetPointsCoords(ctx, app, pointIDs)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	out := make([]CoordResult, 0, len(pcs))
	for _, pc := range pcs {
		d := projection.ReportDistance(projection.Distance(xyz, pc.Coord))
		if radius > 0 && d >= radius {
			continue
		}
		out = append(out, CoordResult{
			PointID:  pc.PointID,
			Coord:    projection.FromUnitCube(pc.Coord),
			Distance: d,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	limit := pointsLimit
	if limit == 0 {
		limit = len(pointIDs)
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

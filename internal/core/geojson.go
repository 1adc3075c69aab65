package core

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// NearestPointsFeatureCollection renders a NearestPoints result as a
// GeoJSON FeatureCollection, for API clients that want to drop the
// result straight onto a map rather than parse the raw result rows.
func NearestPointsFeatureCollection(results []NearestPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		f := geojson.NewFeature(orb.Point{r.Coord.Lon, r.Coord.Lat})
		f.Properties = geojson.Properties{
			"point_id": r.PointID,
			"priority": r.Priority,
			"distance": r.Distance,
			"elev":     r.Coord.Elev,
		}
		fc.Append(f)
	}
	return fc
}

// CoordResultsFeatureCollection does the same for a PointsCoords
// result.
func CoordResultsFeatureCollection(results []CoordResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		f := geojson.NewFeature(orb.Point{r.Coord.Lon, r.Coord.Lat})
		f.Properties = geojson.Properties{
			"point_id": r.PointID,
			"distance": r.Distance,
			"elev":     r.Coord.Elev,
		}
		fc.Append(f)
	}
	return fc
}

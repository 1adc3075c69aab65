package core

import (
	"log/slog"

	"github.com/ringsaturn/tzf"

	"github.com/geomesh/proximity/internal/projection"
)

// TimeZoneEnricher best-effort tags a geodetic point with its IANA
// timezone name. It has no bearing on the core operations — callers
// that want the annotation call it explicitly on a result's Coord.
type TimeZoneEnricher struct {
	finder tzf.F
}

// NewTimeZoneEnricher loads tzf's embedded timezone polygon data. A
// load failure is logged and yields a no-op enricher rather than
// failing startup over an optional feature.
func NewTimeZoneEnricher() *TimeZoneEnricher {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		slog.Warn("timezone enrichment disabled: failed to load tzf data", "error", err)
		return &TimeZoneEnricher{}
	}
	return &TimeZoneEnricher{finder: finder}
}

// Lookup returns the IANA timezone name for g, or "" if enrichment is
// unavailable or no polygon matched.
func (e *TimeZoneEnricher) Lookup(g projection.Geodetic) string {
	if e == nil || e.finder == nil {
		return ""
	}
	return e.finder.GetTimezoneName(g.Lon, g.Lat)
}

// Package appstore defines the per-tenant roster contract (spec.md
// §4.D) consumed by the core: auth keys, HMAC keys, max zoom level,
// and each point's subject list and canonical coordinate. The core
// assumes single-threaded, strongly consistent access to a Store;
// Store implementations are responsible for providing that.
package appstore

import (
	"context"
	"errors"

	"github.com/geomesh/proximity/internal/projection"
)

// ErrNotFound is returned when a tenant or point does not exist.
var ErrNotFound = errors.New("appstore: not found")

// Subject is a (subject_id, priority) tag on a point.
type Subject struct {
	SubjectID string
	Priority  float64
}

// Store is the contract the core requires from tenant storage.
// Implementations must be linearizable within a tenant (spec.md §5).
type Store interface {
	// GetAuthKey returns the tenant's management auth key.
	GetAuthKey(ctx context.Context, app string) (string, error)
	// GetHMACKey returns the tenant's token-signing secret.
	GetHMACKey(ctx context.Context, app string) ([]byte, error)
	// GetMaxZoomLevel returns the tenant's configured max zoom.
	GetMaxZoomLevel(ctx context.Context, app string) (int, error)

	// HasPoint reports whether a point exists in the roster.
	HasPoint(ctx context.Context, app, pointID string) (bool, error)
	// GetPointSubjects returns a point's (subject, priority) tags.
	GetPointSubjects(ctx context.Context, app, pointID string) ([]Subject, error)
	// GetPointsCoords resolves coordinates for a set of point ids,
	// skipping any id that does not exist, preserving input order.
	GetPointsCoords(ctx context.Context, app string, pointIDs []string) ([]PointCoord, error)
	// SetPointCoord records a point's latest canonical coordinate.
	// Idempotent.
	SetPointCoord(ctx context.Context, app, pointID string, coord projection.Cube) error

	// AddPoint adds a point to the roster (management).
	AddPoint(ctx context.Context, app, pointID string) error
	// DeletePoint removes a point from the roster (management).
	DeletePoint(ctx context.Context, app, pointID string) error
	// SetPointSubjects replaces a point's subject list (management).
	SetPointSubjects(ctx context.Context, app, pointID string, subjects []Subject) error
}

// PointCoord pairs a point id with its last known coordinate.
type PointCoord struct {
	PointID string
	Coord   projection.Cube
}

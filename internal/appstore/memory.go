package appstore

import (
	"context"
	"sync"

	"github.com/geomesh/proximity/internal/projection"
)

// tenant is one app's roster. It has no lock of its own: every tenant
// is guarded by Memory's single RWMutex, so writes to one tenant
// block access to all others.
type tenant struct {
	authKey string
	hmacKey []byte
	maxZoom int
	points  map[string]*point
}

type point struct {
	coord    projection.Cube
	hasCoord bool
	subjects []Subject
}

// Memory is an in-memory Store. It is the default collaborator used
// by core tests and by single-process deployments that don't need a
// durable roster.
type Memory struct {
	mu      sync.RWMutex
	tenants map[string]*tenant
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{tenants: make(map[string]*tenant)}
}

// Seed registers a tenant's auth key, HMAC key, and max zoom level.
// Memory has no separate admin API for tenant provisioning, so tests
// call this directly.
func (m *Memory) Seed(app, authKey string, hmacKey []byte, maxZoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[app] = &tenant{
		authKey: authKey,
		hmacKey: hmacKey,
		maxZoom: maxZoom,
		points:  make(map[string]*point),
	}
}

func (m *Memory) tenantFor(app string) (*tenant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[app]
	return t, ok
}

func (m *Memory) GetAuthKey(ctx context.Context, app string) (string, error) {
	t, ok := m.tenantFor(app)
	if !ok {
		return "", ErrNotFound
	}
	return t.authKey, nil
}

func (m *Memory) GetHMACKey(ctx context.Context, app string) ([]byte, error) {
	t, ok := m.tenantFor(app)
	if !ok {
		return nil, ErrNotFound
	}
	return t.hmacKey, nil
}

func (m *Memory) GetMaxZoomLevel(ctx context.Context, app string) (int, error) {
	t, ok := m.tenantFor(app)
	if !ok {
		return 0, ErrNotFound
	}
	return t.maxZoom, nil
}

func (m *Memory) HasPoint(ctx context.Context, app, pointID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[app]
	if !ok {
		return false, ErrNotFound
	}
	_, ok = t.points[pointID]
	return ok, nil
}

func (m *Memory) GetPointSubjects(ctx context.Context, app, pointID string) ([]Subject, error) {
	t, ok := m.tenantFor(app)
	if !ok {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := t.points[pointID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Subject, len(p.subjects))
	copy(out, p.subjects)
	return out, nil
}

func (m *Memory) GetPointsCoords(ctx context.Context, app string, pointIDs []string) ([]PointCoord, error) {
	t, ok := m.tenantFor(app)
	if !ok {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PointCoord, 0, len(pointIDs))
	for _, id := range pointIDs {
		p, ok := t.points[id]
		if !ok || !p.hasCoord {
			continue
		}
		out = append(out, PointCoord{PointID: id, Coord: p.coord})
	}
	return out, nil
}

func (m *Memory) SetPointCoord(ctx context.Context, app, pointID string, coord projection.Cube) error {
	t, ok := m.tenantFor(app)
	if !ok {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := t.points[pointID]
	if !ok {
		return ErrNotFound
	}
	p.coord = coord
	p.hasCoord = true
	return nil
}

func (m *Memory) AddPoint(ctx context.Context, app, pointID string) error {
	t, ok := m.tenantFor(app)
	if !ok {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := t.points[pointID]; exists {
		return nil
	}
	t.points[pointID] = &point{}
	return nil
}

func (m *Memory) DeletePoint(ctx context.Context, app, pointID string) error {
	t, ok := m.tenantFor(app)
	if !ok {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(t.points, pointID)
	return nil
}

func (m *Memory) SetPointSubjects(ctx context.Context, app, pointID string, subjects []Subject) error {
	t, ok := m.tenantFor(app)
	if !ok {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := t.points[pointID]
	if !ok {
		return ErrNotFound
	}
	cp := make([]Subject, len(subjects))
	copy(cp, subjects)
	p.subjects = cp
	return nil
}

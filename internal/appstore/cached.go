package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/geomesh/proximity/internal/projection"
)

// Default TTLs for the read-through layer. Tenant config changes
// rarely, point coordinates more often.
const (
	TenantConfigTTL = 1 * time.Hour
	PointCoordTTL   = 5 * time.Minute
)

// CachedStore wraps a durable Store with a Redis read-through cache
// for the lookups the core does on every request (tenant config,
// point coordinates). Writes go to the backing Store, the source of
// truth; SetPointCoord and DeletePoint then delete the point's cached
// coordinate from Redis as a best-effort invalidation.
type CachedStore struct {
	backing Store
	redis   *redis.Client
	group   singleflight.Group
}

// NewCachedStore wraps backing with a Redis cache using client.
func NewCachedStore(backing Store, client *redis.Client) *CachedStore {
	return &CachedStore{backing: backing, redis: client}
}

func tenantConfigKey(app string) string { return fmt.Sprintf("appstore:tenant:%s", app) }
func pointCoordKey(app, pointID string) string {
	return fmt.Sprintf("appstore:coord:%s:%s", app, pointID)
}

type tenantConfig struct {
	AuthKey string `json:"auth_key"`
	HMACKey []byte `json:"hmac_key"`
	MaxZoom int    `json:"max_zoom"`
}

// loadTenantConfig fetches and caches the tenant triple in one round
// trip, collapsing concurrent misses for the same app via singleflight
// the way the teacher's cache.Prefetch avoids a stampede on shared keys.
func (c *CachedStore) loadTenantConfig(ctx context.Context, app string) (tenantConfig, error) {
	key := tenantConfigKey(app)

	if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var cfg tenantConfig
		if jsonErr := json.Unmarshal(raw, &cfg); jsonErr == nil {
			return cfg, nil
		}
	} else if err != redis.Nil {
		slog.Warn("appstore cache get error", "key", key, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		authKey, err := c.backing.GetAuthKey(ctx, app)
		if err != nil {
			return nil, err
		}
		hmacKey, err := c.backing.GetHMACKey(ctx, app)
		if err != nil {
			return nil, err
		}
		maxZoom, err := c.backing.GetMaxZoomLevel(ctx, app)
		if err != nil {
			return nil, err
		}
		cfg := tenantConfig{AuthKey: authKey, HMACKey: hmacKey, MaxZoom: maxZoom}

		if data, jsonErr := json.Marshal(cfg); jsonErr == nil {
			if err := c.redis.Set(ctx, key, data, TenantConfigTTL).Err(); err != nil {
				slog.Warn("appstore cache set error", "key", key, "error", err)
			}
		}
		return cfg, nil
	})
	if err != nil {
		return tenantConfig{}, err
	}
	return v.(tenantConfig), nil
}

func (c *CachedStore) GetAuthKey(ctx context.Context, app string) (string, error) {
	cfg, err := c.loadTenantConfig(ctx, app)
	if err != nil {
		return "", err
	}
	return cfg.AuthKey, nil
}

func (c *CachedStore) GetHMACKey(ctx context.Context, app string) ([]byte, error) {
	cfg, err := c.loadTenantConfig(ctx, app)
	if err != nil {
		return nil, err
	}
	return cfg.HMACKey, nil
}

func (c *CachedStore) GetMaxZoomLevel(ctx context.Context, app string) (int, error) {
	cfg, err := c.loadTenantConfig(ctx, app)
	if err != nil {
		return 0, err
	}
	return cfg.MaxZoom, nil
}

func (c *CachedStore) HasPoint(ctx context.Context, app, pointID string) (bool, error) {
	return c.backing.HasPoint(ctx, app, pointID)
}

func (c *CachedStore) GetPointSubjects(ctx context.Context, app, pointID string) ([]Subject, error) {
	return c.backing.GetPointSubjects(ctx, app, pointID)
}

func (c *CachedStore) GetPointsCoords(ctx context.Context, app string, pointIDs []string) ([]PointCoord, error) {
	byID := make(map[string]PointCoord, len(pointIDs))
	var misses []string

	for _, id := range pointIDs {
		raw, err := c.redis.Get(ctx, pointCoordKey(app, id)).Bytes()
		if err != nil {
			misses = append(misses, id)
			continue
		}
		var coord projection.Cube
		if jsonErr := json.Unmarshal(raw, &coord); jsonErr != nil {
			misses = append(misses, id)
			continue
		}
		byID[id] = PointCoord{PointID: id, Coord: coord}
	}

	if len(misses) > 0 {
		fetched, err := c.backing.GetPointsCoords(ctx, app, misses)
		if err != nil {
			return nil, err
		}
		for _, pc := range fetched {
			byID[pc.PointID] = pc
			if data, jsonErr := json.Marshal(pc.Coord); jsonErr == nil {
				if err := c.redis.Set(ctx, pointCoordKey(app, pc.PointID), data, PointCoordTTL).Err(); err != nil {
					slog.Warn("appstore cache set error", "point_id", pc.PointID, "error", err)
				}
			}
		}
	}

	out := make([]PointCoord, 0, len(pointIDs))
	for _, id := range pointIDs {
		if pc, ok := byID[id]; ok {
			out = append(out, pc)
		}
	}
	return out, nil
}

func (c *CachedStore) SetPointCoord(ctx context.Context, app, pointID string, coord projection.Cube) error {
	if err := c.backing.SetPointCoord(ctx, app, pointID, coord); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, pointCoordKey(app, pointID)).Err(); err != nil {
		slog.Warn("appstore cache invalidate error", "point_id", pointID, "error", err)
	}
	return nil
}

func (c *CachedStore) AddPoint(ctx context.Context, app, pointID string) error {
	return c.backing.AddPoint(ctx, app, pointID)
}

func (c *CachedStore) DeletePoint(ctx context.Context, app, pointID string) error {
	if err := c.backing.DeletePoint(ctx, app, pointID); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, pointCoordKey(app, pointID)).Err(); err != nil {
		slog.Warn("appstore cache invalidate error", "point_id", pointID, "error", err)
	}
	return nil
}

func (c *CachedStore) SetPointSubjects(ctx context.Context, app, pointID string, subjects []Subject) error {
	return c.backing.SetPointSubjects(ctx, app, pointID, subjects)
}

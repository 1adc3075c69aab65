// Package pointcache is the bounded, TTL'd, priority-ranked multimap
// keyed by (app, subject, sector, zoom) that makes nearest-points
// queries sub-logarithmic without scanning the full point set. This
// is the engine described in spec.md §4.C.
package pointcache

import (
	"sync"
	"time"

	"github.com/geomesh/proximity/internal/projection"
	"github.com/geomesh/proximity/internal/sector"
)

// MaxPointsPerSector bounds how many live entries a single bucket may
// hold (spec.md §3, §8 "Capacity").
const MaxPointsPerSector = 125

// TTL is the freshness window on a cache entry, independent of the
// geo-token TTL.
const TTL = 60 * time.Second

// Entry is a single resident record in a sector bucket.
type Entry struct {
	PointID  string
	Coord    projection.Cube
	Priority float64
	ExpireAt time.Time
}

func (e Entry) live(now time.Time) bool {
	return e.ExpireAt.After(now)
}

// Key addresses a single bucket.
type Key struct {
	App     string
	Subject string
	Sector  sector.ID
}

// bucket is a sector's entry set plus the lock that makes all
// read/write operations on it mutually exclusive (spec.md §5
// "per-bucket exclusion").
type bucket struct {
	mu      sync.Mutex
	entries []Entry
}

// Cache is the process-local mapping from (app, subject, sector,
// zoom) to a bounded, TTL'd SectorBucket. It is safe for concurrent
// use by many readers and writers.
type Cache struct {
	mu      sync.RWMutex
	buckets map[Key]*bucket

	// now is overridable by tests that need a seeded clock; production
	// code leaves it nil and gets time.Now.
	now func() time.Time
}

// New creates an empty PointCache.
func New() *Cache {
	return &Cache{
		buckets: make(map[Key]*bucket),
	}
}

func (c *Cache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Cache) bucketFor(key Key) *bucket {
	c.mu.RLock()
	b, ok := c.buckets[key]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.buckets[key]; ok {
		return b
	}
	b = &bucket{}
	c.buckets[key] = b
	return b
}

func purgeExpired(entries []Entry, now time.Time) []Entry {
	live := entries[:0]
	for _, e := range entries {
		if e.live(now) {
			live = append(live, e)
		}
	}
	return live
}

// UpdatePointInSector attempts to admit or refresh a point's entry in
// the bucket at (app, subject, sector, zoom). It implements spec.md
// §4.C step-by-step:
//
//  1. load (or create) the bucket
//  2. purge expired entries
//  3. compute the new expiry
//  4. if the point already has an entry, replace it in place (always
//     succeeds, regardless of priority)
//  5. otherwise, if there's room, append
//  6. otherwise, evict the lowest-priority resident only if the
//     incoming priority is strictly greater
//
// The return value drives the caller's zoom-climb: false means this
// sector rejected the point, so every coarser sector containing it
// will too (a monotonicity heuristic, not a guarantee).
func (c *Cache) UpdatePointInSector(key Key, pointID string, coord projection.Cube, priority float64) bool {
	b := c.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := c.clock()
	b.entries = purgeExpired(b.entries, now)

	expireAt := now.Add(TTL)
	newEntry := Entry{PointID: pointID, Coord: coord, Priority: priority, ExpireAt: expireAt}

	minIdx := -1
	for i, e := range b.entries {
		if e.PointID == pointID {
			b.entries[i] = newEntry
			return true
		}
		if minIdx == -1 || e.Priority < b.entries[minIdx].Priority {
			minIdx = i
		}
	}

	if len(b.entries) < MaxPointsPerSector {
		b.entries = append(b.entries, newEntry)
		return true
	}

	if minIdx >= 0 && b.entries[minIdx].Priority < priority {
		b.entries[minIdx] = newEntry
		return true
	}

	return false
}

// GetPointsInSector returns a snapshot of the live entries in a
// bucket, purging expired ones as a side effect. Absence of the key
// is indistinguishable from an empty bucket.
func (c *Cache) GetPointsInSector(key Key) []Entry {
	c.mu.RLock()
	b, ok := c.buckets[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := c.clock()
	b.entries = purgeExpired(b.entries, now)

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

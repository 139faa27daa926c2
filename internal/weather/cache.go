package weather

import (
	"sync"
	"time"
)

// FreshnessWindow is how long a cached snapshot counts as fresh.
const FreshnessWindow = time.Minute

// Entry is one cached snapshot with the instant it was fetched.
type Entry struct {
	Snapshot  Snapshot
	FetchedAt time.Time
}

// Cache holds snapshots keyed by saved-location id. Stale entries are kept,
// not evicted: stale data is displayed with an indicator rather than
// discarded.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	window  time.Duration

	now func() time.Time
}

// NewCache creates a Cache. A non-positive window falls back to
// FreshnessWindow.
func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = FreshnessWindow
	}
	return &Cache{
		entries: make(map[string]Entry),
		window:  window,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the cached snapshot for a location id, whether it is stale,
// and whether anything was cached at all.
func (c *Cache) Get(locationID string) (snapshot Snapshot, stale bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[locationID]
	if !ok {
		return Snapshot{}, false, false
	}
	return e.Snapshot, c.now().Sub(e.FetchedAt) > c.window, true
}

// Put stores a freshly fetched snapshot for a location id.
func (c *Cache) Put(locationID string, s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[locationID] = Entry{Snapshot: s, FetchedAt: c.now()}
}

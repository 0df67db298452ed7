package jwks

import (
	"sync/atomic"
	"time"
)

// Cache holds the most recent KeySet. The zero value is an empty cache. Snapshots are
// swapped whole, so concurrent readers see either the old or the new set.
type Cache struct {
	snap atomic.Pointer[KeySet]
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{} }

// Load returns the current snapshot, or nil when nothing has been fetched yet.
func (c *Cache) Load() *KeySet { return c.snap.Load() }

// Store replaces the snapshot.
func (c *Cache) Store(s *KeySet) { c.snap.Store(s) }

// Fresh returns the snapshot when it is younger than staleAfter.
func (c *Cache) Fresh(now time.Time, staleAfter time.Duration) (*KeySet, bool) {
	s := c.snap.Load()
	if s == nil || s.Age(now) > staleAfter {
		return s, false
	}
	return s, true
}

// Invalidate drops the snapshot; the next lookup fetches.
func (c *Cache) Invalidate() { c.snap.Store(nil) }

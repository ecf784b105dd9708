package scanner

import (
	"time"

	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/pathops"
)

// DefaultRefreshInterval is how long a cached size is trusted without a rescan.
const DefaultRefreshInterval = 30 * time.Second

// Cache maps a directory path to its last computed size.
//
// Cache is not safe for concurrent use on its own; the engine guards it with
// the same lock as the entry list.
type Cache struct {
	entries map[string]model.SizeInfo
	ttl     time.Duration
	now     func() time.Time
}

// NewCache returns an empty cache. A zero ttl selects DefaultRefreshInterval
// and a nil clock selects time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultRefreshInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]model.SizeInfo),
		ttl:     ttl,
		now:     now,
	}
}

func (c *Cache) Get(path string) (model.SizeInfo, bool) {
	info, ok := c.entries[pathops.Normalize(path)]
	return info, ok
}

// Put stores info for path and reports whether it was stored. A terminal
// result (exact and complete) is never replaced by an uncertain one; a
// complete estimate or a lower bound still replaces it, so a tree that shrank
// or grew is picked up once the terminal result has gone stale.
func (c *Cache) Put(path string, info model.SizeInfo) bool {
	path = pathops.Normalize(path)
	if prior, ok := c.entries[path]; ok && prior.Terminal() && info.Uncertain() {
		return false
	}
	c.entries[path] = info
	return true
}

// IsFresh reports whether info was computed less than one refresh interval ago.
func (c *Cache) IsFresh(info model.SizeInfo) bool {
	return c.now().Sub(info.Tick) < c.ttl
}

func (c *Cache) Invalidate(path string) {
	delete(c.entries, pathops.Normalize(path))
}

func (c *Cache) Clear() {
	clear(c.entries)
}

func (c *Cache) Len() int {
	return len(c.entries)
}

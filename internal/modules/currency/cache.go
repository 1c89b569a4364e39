package currency

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Entry struct {
	Rate     float64   `json:"rate"`
	CachedAt time.Time `json:"cached_at"`
}

type CacheStat struct {
	Pair string  `json:"pair"`
	Rate float64 `json:"rate"`
	Age  string  `json:"age"`
}

// Cache is the get-or-fetch-with-ttl seam: the in-memory implementation
// is the default and the redis one drops in without touching callers.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Stats(ctx context.Context) ([]CacheStat, error)
	Clear(ctx context.Context) error
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	me, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if c.now().After(me.expiresAt) {
		delete(c.entries, key)
		return Entry{}, false, nil
	}
	return me.entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, e Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{entry: e, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Stats(_ context.Context) ([]CacheStat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]CacheStat, 0, len(c.entries))
	for pair, me := range c.entries {
		if now.After(me.expiresAt) {
			continue
		}
		out = append(out, CacheStat{
			Pair: pair,
			Rate: me.entry.Rate,
			Age:  ageString(now.Sub(me.entry.CachedAt)),
		})
	}
	return out, nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string]memoryEntry{}
	return nil
}

func ageString(d time.Duration) string {
	mins := int(d.Minutes())
	if mins == 1 {
		return "1 minute ago"
	}
	return fmt.Sprintf("%d minutes ago", mins)
}

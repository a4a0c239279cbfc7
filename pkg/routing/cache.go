package routing

import (
	"log/slog"
	"sync"

	"mercator-hq/ganymede/pkg/providers"
)

// adapterCache is a thread-safe cache of provider adapter instances keyed
// by provider id. Adapters hold pooled HTTP connections, so reusing one
// instance per provider matters; the router owns the cache and the cached
// adapters' lifecycles.
type adapterCache struct {
	// entries maps provider ids to live adapter instances
	entries map[string]providers.Provider

	// mu protects concurrent access to the cache
	mu sync.RWMutex
}

// newAdapterCache creates an empty adapter cache.
func newAdapterCache() *adapterCache {
	return &adapterCache{
		entries: make(map[string]providers.Provider),
	}
}

// get retrieves a cached adapter.
// Returns (adapter, true) if present, (nil, false) otherwise.
func (c *adapterCache) get(id string) (providers.Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[id]
	return p, ok
}

// getOrStore returns the cached adapter for id, or stores the one produced
// by build. Two racing callers may both invoke build; the loser's instance
// is closed and the winner's returned, so every caller sees one instance
// per provider id.
func (c *adapterCache) getOrStore(id string, build func() providers.Provider) providers.Provider {
	c.mu.RLock()
	p, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return p
	}

	fresh := build()

	c.mu.Lock()
	if existing, ok := c.entries[id]; ok {
		c.mu.Unlock()
		if err := fresh.Close(); err != nil {
			slog.Debug("failed to close duplicate adapter", "provider", id, "error", err)
		}
		return existing
	}
	c.entries[id] = fresh
	c.mu.Unlock()

	return fresh
}

// clear drops and closes every cached adapter.
func (c *adapterCache) clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]providers.Provider)
	c.mu.Unlock()

	for id, p := range entries {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close cached adapter", "provider", id, "error", err)
		}
	}
}

// len returns the number of cached adapters.
func (c *adapterCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

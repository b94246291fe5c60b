package menu

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/roomservice/pkg/types"
)

// DefaultCacheSize is the number of menu versions kept in memory
const DefaultCacheSize = 16

// Cache keeps item listings per menu version with LRU eviction. Published
// versions never change, so entries do not go stale.
type Cache struct {
	cache *lru.Cache[string, []*types.MenuItem]
}

// NewCache creates a new menu cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, []*types.MenuItem](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []*types.MenuItem](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached listing so callers cannot alter it
func (c *Cache) Get(version string) ([]*types.MenuItem, bool) {
	items, ok := c.cache.Get(version)
	if !ok {
		return nil, false
	}
	return copyItems(items), true
}

// Set stores a listing
func (c *Cache) Set(version string, items []*types.MenuItem) {
	c.cache.Add(version, copyItems(items))
}

// Remove drops one version
func (c *Cache) Remove(version string) {
	c.cache.Remove(version)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

func copyItems(items []*types.MenuItem) []*types.MenuItem {
	out := make([]*types.MenuItem, len(items))
	for i, it := range items {
		cp := *it
		out[i] = &cp
	}
	return out
}

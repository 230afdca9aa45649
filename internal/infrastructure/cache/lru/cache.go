package lru

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

const (
	defaultSize = 512
	defaultTTL  = 5 * time.Minute
)

// Cache keeps assembled fusion results with a TTL and tracks which cache
// keys each collection contributed to, so a collection change can drop
// every result that might now be stale.
type Cache struct {
	entries *expirable.LRU[string, *domain.FusedContext]

	mu           sync.Mutex
	byCollection map[string]map[string]struct{}
}

func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		entries:      expirable.NewLRU[string, *domain.FusedContext](size, nil, ttl),
		byCollection: make(map[string]map[string]struct{}),
	}
}

func (c *Cache) Get(key string) (*domain.FusedContext, bool) {
	return c.entries.Get(key)
}

func (c *Cache) Set(key string, collectionIDs []string, value *domain.FusedContext) {
	c.entries.Add(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range collectionIDs {
		keys, ok := c.byCollection[id]
		if !ok {
			keys = make(map[string]struct{})
			c.byCollection[id] = keys
		}
		keys[key] = struct{}{}
	}
}

// InvalidateCollection drops every cached result the collection fed into.
// Index entries for keys already evicted by the LRU are harmless: Remove
// on a missing key is a no-op.
func (c *Cache) InvalidateCollection(collectionID string) {
	c.mu.Lock()
	keys := c.byCollection[collectionID]
	delete(c.byCollection, collectionID)
	c.mu.Unlock()

	for key := range keys {
		c.entries.Remove(key)
	}
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

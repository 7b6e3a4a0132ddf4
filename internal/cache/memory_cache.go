package cache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

type memoryEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache with LRU eviction. Both reads and
// writes refresh recency. Expired entries are dropped lazily on access and in
// bulk by CleanupExpired, which an external scheduler is expected to drive.
type MemoryCache struct {
	logger  *zap.Logger
	maxSize int

	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // front is most recently used
	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

func NewMemoryCache(logger *zap.Logger, maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		logger:  logger,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.expired++
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.value, true
}

func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = elem
}

// Clear removes the entry for key, or every entry when key is empty.
func (c *MemoryCache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "" {
		c.entries = make(map[string]*list.Element)
		c.order.Init()
		return
	}
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// CleanupExpired removes every entry past its deadline and returns how many
// were dropped.
func (c *MemoryCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*memoryEntry)
		if now.After(entry.expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		c.expired += uint64(removed)
		c.logger.Debug("removed expired cache entries", zap.Int("count", removed))
	}
	return removed
}

func (c *MemoryCache) Stats() core.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return core.CacheStats{
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		HitRate:   hitRate,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}

func (c *MemoryCache) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
		c.evictions++
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
}

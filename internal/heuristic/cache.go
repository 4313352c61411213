package heuristic

import (
	"container/list"
	"sync"
)

// Cache is a thread-safe LRU cache of heuristic values keyed by state
// fingerprint.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    int
	misses  int
}

type cacheItem struct {
	key   string
	value float64
}

// NewCache creates a cache holding at most maxSize values. A size of 0
// disables caching.
func NewCache(maxSize int) *Cache {
	return &Cache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func (c *Cache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return 0, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem).value, true
}

func (c *Cache) Set(key string, value float64) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheItem).value = value
		return
	}

	elem := c.lru.PushFront(&cacheItem{key: key, value: value})
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		c.evictOldest()
	}
}

// evictOldest removes the least recently used item
func (c *Cache) evictOldest() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	c.lru.Remove(elem)
	delete(c.items, elem.Value.(*cacheItem).key)
}

func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    int
	Misses  int
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: c.lru.Len(), MaxSize: c.maxSize, Hits: c.hits, Misses: c.misses}
}

package index

import (
	"sync"

	"encindex/internal/domain"
)

// DefaultCachePages bounds the decoded-page cache of a Reader when the
// caller does not choose a capacity.
const DefaultCachePages = 1000

// pageCache holds decoded pages, least recently used out first. There is
// no TTL and no invalidation: an index never changes after build, so a
// cached page is good for the life of the reader.
type pageCache struct {
	mu      sync.RWMutex
	entries map[int][]domain.Record
	order   []int
	maxSize int
}

func newPageCache(maxSize int) *pageCache {
	if maxSize <= 0 {
		maxSize = DefaultCachePages
	}
	return &pageCache{
		entries: make(map[int][]domain.Record),
		order:   make([]int, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *pageCache) Get(pageid int) ([]domain.Record, bool) {
	c.mu.RLock()
	recs, exists := c.entries[pageid]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(pageid)
	c.mu.Unlock()

	return recs, true
}

func (c *pageCache) Put(pageid int, recs []domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[pageid]; exists {
		c.entries[pageid] = recs
		c.moveToEnd(pageid)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[pageid] = recs
	c.order = append(c.order, pageid)
}

func (c *pageCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *pageCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *pageCache) moveToEnd(pageid int) {
	c.removeFromOrder(pageid)
	c.order = append(c.order, pageid)
}

func (c *pageCache) removeFromOrder(pageid int) {
	for i, id := range c.order {
		if id == pageid {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

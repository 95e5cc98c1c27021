package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	key     string
	value   interface{}
	expires time.Time
}

// MemoryCache is an in-memory LRU cache with per-entry TTL. It serves as
// the L1 layer in front of Redis.
type MemoryCache struct {
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	mu      sync.Mutex
	stopCh  chan struct{}
}

// NewMemoryCache creates a new in-memory cache holding at most maxSize
// entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}

	c := &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		stopCh:  make(chan struct{}),
	}

	go c.sweep()

	return c
}

// Get retrieves a value, treating expired entries as misses.
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return nil, ErrNotFound
	}

	item := element.Value.(*memoryItem)
	if time.Now().After(item.expires) {
		c.remove(key)
		return nil, ErrNotFound
	}

	c.lru.MoveToFront(element)
	return item.value, nil
}

// Set stores a value with the given TTL, evicting the least recently used
// entry when over capacity.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Now().Add(ttl)

	if element, ok := c.items[key]; ok {
		item := element.Value.(*memoryItem)
		item.value = value
		item.expires = expires
		c.lru.MoveToFront(element)
		return nil
	}

	element := c.lru.PushFront(&memoryItem{key: key, value: value, expires: expires})
	c.items[key] = element

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest.Value.(*memoryItem).key)
		}
	}

	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(key)
	return nil
}

// Close stops the background sweeper.
func (c *MemoryCache) Close() error {
	close(c.stopCh)
	return nil
}

// Len returns the current number of entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// remove deletes an entry (caller must hold lock).
func (c *MemoryCache) remove(key string) {
	if element, ok := c.items[key]; ok {
		c.lru.Remove(element)
		delete(c.items, key)
	}
}

// sweep periodically drops expired entries so the map does not grow
// unbounded between reads.
func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, element := range c.items {
				if now.After(element.Value.(*memoryItem).expires) {
					c.remove(key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

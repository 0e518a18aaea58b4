package artifacts

import (
	"sync"
	"time"
)

// cache is a process-wide value cache with a TTL. Readers outside the TTL
// see a miss and rebuild; the lock only guards the slot, not the rebuild, so
// concurrent misses race to fill it and the last writer wins.
type cache[T any] struct {
	mu      sync.RWMutex
	value   T
	filled  bool
	expires time.Time
}

func (c *cache[T]) get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filled || time.Now().After(c.expires) {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *cache[T]) set(value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.filled = true
	c.expires = time.Now().Add(ttl)
}

func (c *cache[T]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.filled = false
}

package component

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes the factories returned by a loader. Concurrent loads of the
// same path share one call to the underlying loader. Failures are not
// cached.
//
// The shared call runs detached from any single caller's context, so a
// caller that gives up does not fail the others waiting on it. Invalidate
// and Reset start a new generation; loads begun before them still return
// their result but do not store it.
type Cache struct {
	loader Loader
	group  singleflight.Group

	mu      sync.RWMutex
	gen     uint64
	entries map[string]Factory
}

// NewCache creates a cache in front of l.
func NewCache(l Loader) *Cache {
	return &Cache{
		loader:  l,
		entries: make(map[string]Factory),
	}
}

// Load implements Loader.
func (c *Cache) Load(ctx context.Context, path string) (Factory, error) {
	c.mu.RLock()
	f, ok := c.entries[path]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return f, nil
	}

	key := strconv.FormatUint(gen, 10) + ":" + path
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that finished between the read above and DoChan has
		// already stored the entry.
		c.mu.RLock()
		f, ok := c.entries[path]
		c.mu.RUnlock()
		if ok {
			return f, nil
		}
		f, err := c.loader.Load(context.WithoutCancel(ctx), path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.entries[path] = f
		}
		c.mu.Unlock()
		return f, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Factory), nil
	}
}

// Invalidate drops the entry for path. Loads in flight for any path are
// not stored.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.gen++
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]Factory)
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of cached factories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

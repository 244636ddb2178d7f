/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package tsconfig

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache provides a caching interface for parsed manifests.
// Contexts of one project usually share a manifest found above them, so a
// batch of scans can parse it once.
type Cache interface {
	// Get retrieves a cached manifest by its file path.
	// Returns the cached manifest and true if found, nil and false otherwise.
	Get(path string) (*Manifest, bool)

	// Set stores a parsed manifest in the cache, keyed by file path.
	Set(path string, m *Manifest)

	// Invalidate removes a cached entry, typically called when a file changes.
	Invalidate(path string)

	// GetOrLoad atomically retrieves from cache or loads using the provided function.
	// Only one goroutine should execute the loader for a given path; others wait.
	GetOrLoad(path string, loader func() (*Manifest, error)) (*Manifest, error)
}

// cacheEntry holds a cached value and coordinates concurrent loading.
type cacheEntry struct {
	m    *Manifest
	err  error
	once sync.Once
}

// MemoryCache is a thread-safe, unbounded in-memory implementation of Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[string]*Manifest
	loading sync.Map // map[string]*cacheEntry for in-flight loads
}

// NewMemoryCache creates a new in-memory cache for manifests.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]*Manifest),
	}
}

// Get retrieves a cached manifest by its file path.
func (c *MemoryCache) Get(path string) (*Manifest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.cache[path]
	return m, ok
}

// Set stores a parsed manifest in the cache.
func (c *MemoryCache) Set(path string, m *Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[path] = m
}

// Invalidate removes a cached entry and any in-flight loading state.
func (c *MemoryCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.cache, path)
	c.mu.Unlock()
	c.loading.Delete(path)
}

// GetOrLoad atomically retrieves from cache or loads using the provided function.
// Only one goroutine will execute the loader for a given path; others wait for the result.
// A failed load is remembered until Invalidate is called.
func (c *MemoryCache) GetOrLoad(path string, loader func() (*Manifest, error)) (*Manifest, error) {
	c.mu.RLock()
	if m, ok := c.cache[path]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	actual, _ := c.loading.LoadOrStore(path, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.once.Do(func() {
		entry.m, entry.err = loader()
		if entry.err == nil {
			c.mu.Lock()
			c.cache[path] = entry.m
			c.mu.Unlock()
		}
	})

	// Entries stay in c.loading until Invalidate; deleting here would race
	// with concurrent LoadOrStore calls.
	return entry.m, entry.err
}

// LRUCache is a size-bounded Cache for long-running use. Concurrent loads
// of the same path are collapsed into one; failed loads are not cached.
type LRUCache struct {
	entries *lru.Cache[string, *Manifest]
	group   singleflight.Group
}

// NewLRUCache creates a cache holding at most size manifests.
func NewLRUCache(size int) (*LRUCache, error) {
	entries, err := lru.New[string, *Manifest](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries}, nil
}

// Get retrieves a cached manifest by its file path.
func (c *LRUCache) Get(path string) (*Manifest, bool) {
	return c.entries.Get(path)
}

// Set stores a parsed manifest, evicting the least recently used one if full.
func (c *LRUCache) Set(path string, m *Manifest) {
	c.entries.Add(path, m)
}

// Invalidate removes a cached entry.
func (c *LRUCache) Invalidate(path string) {
	c.entries.Remove(path)
	c.group.Forget(path)
}

// GetOrLoad retrieves from cache or loads using the provided function.
func (c *LRUCache) GetOrLoad(path string, loader func() (*Manifest, error)) (*Manifest, error) {
	if m, ok := c.entries.Get(path); ok {
		return m, nil
	}
	v, err, _ := c.group.Do(path, func() (any, error) {
		if m, ok := c.entries.Get(path); ok {
			return m, nil
		}
		m, err := loader()
		if err != nil {
			return nil, err
		}
		c.entries.Add(path, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Manifest), nil
}

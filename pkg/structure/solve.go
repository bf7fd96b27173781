package structure

import (
	"fmt"
	"sync"
)

// Solve validates c and fold, assembles the structure, applies the global
// shape for c.Mode, repeats it for ring arrays and builds the faces.
func Solve(c Config, fold float64) (*Geometry, error) {
	if err := Validate(c).Err(); err != nil {
		return nil, err
	}
	if err := ValidateFold(fold); err != nil {
		return nil, err
	}
	g := Orient(Assemble(c, fold), c)
	if c.Mode == ModeRing && c.ArrayCount > 1 {
		g = Array(g, c.ArrayCount)
	}
	BuildFaces(g)
	return g, nil
}

// DefaultCacheSize is the number of solves a Cache keeps when no limit is given.
const DefaultCacheSize = 64

// Cache memoizes Solve keyed by Key(config, fold). Entries are evicted in
// insertion order once the limit is reached. Cached geometries are shared
// between callers and must be treated as read-only.
type Cache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*Geometry
	order   []string
	hits    int
	misses  int
}

// NewCache creates a cache holding at most limit geometries.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &Cache{limit: limit, entries: make(map[string]*Geometry)}
}

// Solve returns the cached geometry for (c, fold) or computes and stores it.
func (k *Cache) Solve(c Config, fold float64) (*Geometry, error) {
	key := Key(c, fold)
	if g, ok := k.Get(key); ok {
		return g, nil
	}
	g, err := Solve(c, fold)
	if err != nil {
		return nil, fmt.Errorf("solve at %.4f rad: %w", fold, err)
	}
	k.Put(key, g)
	return g, nil
}

// Get looks up a geometry by key.
func (k *Cache) Get(key string) (*Geometry, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	g, ok := k.entries[key]
	if ok {
		k.hits++
	} else {
		k.misses++
	}
	return g, ok
}

// Put stores g under key, evicting the oldest entry when full.
func (k *Cache) Put(key string, g *Geometry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.entries[key]; ok {
		k.entries[key] = g
		return
	}
	for len(k.order) >= k.limit {
		oldest := k.order[0]
		k.order = k.order[1:]
		delete(k.entries, oldest)
	}
	k.entries[key] = g
	k.order = append(k.order, key)
}

// Evict removes one key.
func (k *Cache) Evict(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.entries[key]; !ok {
		return
	}
	delete(k.entries, key)
	for i, o := range k.order {
		if o == key {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
}

// Purge empties the cache.
func (k *Cache) Purge() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = make(map[string]*Geometry)
	k.order = nil
}

// Len returns the number of cached geometries.
func (k *Cache) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Stats returns the hit and miss counts since creation.
func (k *Cache) Stats() (hits, misses int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.hits, k.misses
}

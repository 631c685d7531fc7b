// Package normcache implements the auxiliary normalization lookup: a
// many-to-many mapping from a non-canonical vocabulary id to the
// vocabulary id(s) of its canonical form, used to fold near-duplicate
// phrases ("st marks ave" / "saint marks ave") onto one posting list
// before coalesce ever sees them.
//
// Unlike the rest of this module, normalization is an optimization
// hint rather than a correctness requirement, so it is kept as a
// bounded LRU rather than a full persistent store: an entry falling
// out of cache just means that pairing is re-derived upstream instead
// of served here.
package normcache

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one (id, canonical forms) pairing, the unit WriteBatch and
// GetAll exchange.
type Entry struct {
	Key    uint32
	Values []uint32
}

// Cache is a bounded id -> []id normalization lookup.
type Cache struct {
	mu    sync.RWMutex
	cache *lru.Cache[uint32, []uint32]
	keys  []uint32 // ascending, kept in sync with cache's live key set
}

// New returns a Cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = 4096
	}
	c := &Cache{}
	// Only ever invoked synchronously from within Add, which Set calls
	// while already holding mu, so this must not lock it again.
	cache, err := lru.NewWithEvict(size, func(key uint32, _ []uint32) {
		c.removeKeyLocked(key)
	})
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Get returns the canonical id(s) id maps to, if cached.
func (c *Cache) Get(id uint32) ([]uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Get(id)
}

// Set records that id maps to values, evicting the least-recently-used
// entry if the cache is full.
func (c *Cache) Set(id uint32, values []uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache.Peek(id); !ok {
		c.insertKeyLocked(id)
	}
	c.cache.Add(id, values)
}

// WriteBatch applies entries as a unit, in order.
func (c *Cache) WriteBatch(entries []Entry) {
	for _, e := range entries {
		c.Set(e.Key, e.Values)
	}
}

// GetPrefixRange scans the cached ids in [startID, startID+count), up
// to scanMax of them, and returns the canonical ids those entries
// reference that fall outside that range, up to returnMax values.
//
// This mirrors the trick the id space itself enables: ids are assigned
// in lexicographic order of their term, so every id sharing a prefix
// with the terms in [startID, startID+count) is contiguous, and any
// canonical reference leaving that contiguous block points at a
// distinct, already-canonical term worth surfacing.
func (c *Cache) GetPrefixRange(startID, count uint32, scanMax, returnMax int) []uint32 {
	if scanMax <= 0 {
		scanMax = 100
	}
	if returnMax <= 0 {
		returnMax = 10
	}
	ceiling := startID + count

	c.mu.RLock()
	defer c.mu.RUnlock()

	start := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= startID })

	var out []uint32
	scanned := 0
	for i := start; i < len(c.keys) && scanned < scanMax; i++ {
		key := c.keys[i]
		if key >= ceiling {
			break
		}
		scanned++

		values, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		for _, v := range values {
			if v >= startID && v < ceiling {
				continue
			}
			out = append(out, v)
			if len(out) >= returnMax {
				return out
			}
		}
	}
	return out
}

// GetAll returns every cached entry, ordered by key.
func (c *Cache) GetAll() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.keys))
	for _, key := range c.keys {
		values, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		out = append(out, Entry{Key: key, Values: values})
	}
	return out
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

func (c *Cache) insertKeyLocked(id uint32) {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= id })
	c.keys = append(c.keys, 0)
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = id
}

func (c *Cache) removeKeyLocked(id uint32) {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= id })
	if i < len(c.keys) && c.keys[i] == id {
		c.keys = append(c.keys[:i], c.keys[i+1:]...)
	}
}

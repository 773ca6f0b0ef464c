package detect

import (
	"sync"

	"sprite-suite/internal/sheet"
)

// DefaultCacheCapacity is the number of results a Cache keeps.
const DefaultCacheCapacity = 10

// CacheKey identifies a detection run. Two runs with equal keys produce the
// same frames.
type CacheKey struct {
	Width         int
	Height        int
	Fingerprint   uint64
	Tolerance     int
	MinSpriteSize int
	Use8Way       bool
	Algorithm     Algorithm
}

func newCacheKey(p *Pixels, cfg Config) CacheKey {
	return CacheKey{
		Width:         p.Width,
		Height:        p.Height,
		Fingerprint:   p.Fingerprint(),
		Tolerance:     cfg.Tolerance,
		MinSpriteSize: cfg.MinSpriteSize,
		Use8Way:       cfg.Use8WayConnectivity,
		Algorithm:     cfg.Algorithm,
	}
}

// Cache is a bounded map of detection results. Once it holds more than its
// capacity, the oldest inserted entry is evicted; reads do not refresh an
// entry's age.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[CacheKey][]*sheet.SimpleFrame
	order    []CacheKey
}

// NewCache creates a cache holding at most capacity results.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{capacity: capacity, entries: make(map[CacheKey][]*sheet.SimpleFrame)}
}

// Get returns a copy of the cached frames for key.
func (c *Cache) Get(key CacheKey) ([]*sheet.SimpleFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return cloneFrames(frames), true
}

// Set stores a copy of frames under key. Replacing an existing key keeps
// its original insertion position.
func (c *Cache) Set(key CacheKey, frames []*sheet.SimpleFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = cloneFrames(frames)
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[CacheKey][]*sheet.SimpleFrame)
	c.order = nil
}

// CacheInfo describes the cache contents.
type CacheInfo struct {
	Size     int        `json:"size"`
	Capacity int        `json:"maxSize"`
	Keys     []CacheKey `json:"keys"`
}

// Info returns the current size, capacity and keys in insertion order.
func (c *Cache) Info() CacheInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheInfo{Size: len(c.entries), Capacity: c.capacity, Keys: append([]CacheKey(nil), c.order...)}
}

func cloneFrames(frames []*sheet.SimpleFrame) []*sheet.SimpleFrame {
	out := make([]*sheet.SimpleFrame, len(frames))
	for i, f := range frames {
		c := *f
		out[i] = &c
	}
	return out
}

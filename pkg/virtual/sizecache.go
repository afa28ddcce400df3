package virtual

// SizeEntry is one persisted exact measurement.
type SizeEntry struct {
	Key  string  `json:"key"`
	Size float64 `json:"size"`
}

// SizeCache maps item keys to their last exact measured size. It is
// independent of lane count and keeps keys in first-measured order so that
// snapshots are stable.
//
// Every mutation bumps Version, which the layout memo uses as its
// dependency instead of comparing map contents.
type SizeCache struct {
	sizes   map[string]float64
	order   []string
	version uint64
}

// NewSizeCache creates an empty cache.
func NewSizeCache() *SizeCache {
	return &SizeCache{sizes: make(map[string]float64)}
}

// Get returns the measured size for key.
func (c *SizeCache) Get(key string) (float64, bool) {
	size, ok := c.sizes[key]
	return size, ok
}

// Set records the measured size for key.
func (c *SizeCache) Set(key string, size float64) {
	if _, ok := c.sizes[key]; !ok {
		c.order = append(c.order, key)
	}
	c.sizes[key] = size
	c.version++
}

// Len returns the number of measured keys.
func (c *SizeCache) Len() int { return len(c.sizes) }

// Version changes whenever the cache is mutated.
func (c *SizeCache) Version() uint64 { return c.version }

// Clear drops every measurement.
func (c *SizeCache) Clear() {
	c.sizes = make(map[string]float64)
	c.order = nil
	c.version++
}

// Snapshot returns the measurements in first-measured order.
func (c *SizeCache) Snapshot() []SizeEntry {
	entries := make([]SizeEntry, 0, len(c.order))
	for _, key := range c.order {
		entries = append(entries, SizeEntry{Key: key, Size: c.sizes[key]})
	}
	return entries
}

// Restore replaces the cache content with entries.
func (c *SizeCache) Restore(entries []SizeEntry) {
	c.sizes = make(map[string]float64, len(entries))
	c.order = c.order[:0]
	for _, e := range entries {
		if _, ok := c.sizes[e.Key]; !ok {
			c.order = append(c.order, e.Key)
		}
		c.sizes[e.Key] = e.Size
	}
	c.version++
}

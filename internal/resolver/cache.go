package resolver

// Key identifies a unique resolution request: a normalized city name plus
// an ISO alpha-2 country code. An empty Code means the country could not be
// mapped.
type Key struct {
	City string
	Code string
}

// Cache memoizes one Outcome per Key for the lifetime of a batch run.
// Entries are written once and never evicted. It is owned by the Resolver
// and confined to a single goroutine; a concurrent extension would need to
// add its own locking.
type Cache struct {
	entries map[Key]Outcome
}

// NewCache creates an empty resolution cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]Outcome)}
}

// Get returns the cached outcome for key, if present.
func (c *Cache) Get(key Key) (Outcome, bool) {
	out, ok := c.entries[key]
	return out, ok
}

// Put stores the outcome for key. The first write wins; later writes for
// the same key are ignored so a cached outcome can never change mid-run.
func (c *Cache) Put(key Key, out Outcome) {
	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = out
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	return len(c.entries)
}

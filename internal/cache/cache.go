package cache

import (
	"strings"
	"sync"

	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// maxKeyLen bounds fingerprint size. Distinct messages longer than this
// can collide; acceptable for conversational phrasing.
const maxKeyLen = 100

// Cache is a bounded response store. Entries are evicted in insertion
// order (oldest inserted first), not by recency of use. A disabled cache
// accepts Get and Put but does nothing.
type Cache struct {
	enabled bool
	maxSize int
	entries map[string]types.Result
	order   []string
	mu      sync.Mutex
}

// New creates a cache holding at most maxSize entries
func New(enabled bool, maxSize int) *Cache {
	return &Cache{
		enabled: enabled,
		maxSize: maxSize,
		entries: make(map[string]types.Result),
	}
}

// Key derives a deterministic fingerprint from a message and the context
// features that change what a good answer looks like
func Key(message string, ctx *types.StudentContext) string {
	key := strings.ToLower(message) + "-" +
		ctx.ClassLevel + "-" + ctx.District + "-" + strings.Join(ctx.Interests, ",")
	if len(key) > maxKeyLen {
		key = key[:maxKeyLen]
	}
	return key
}

// Get returns the cached result for key, if present
func (c *Cache) Get(key string) (types.Result, bool) {
	if !c.enabled {
		return types.Result{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.entries[key]
	return r, ok
}

// Put stores a result, evicting the oldest-inserted entry when full
func (c *Cache) Put(key string, r types.Result) {
	if !c.enabled || c.maxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = r

	if len(c.entries) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]types.Result)
	c.order = nil
}

// Stats describes the cache for status reporting
type Stats struct {
	Size    int  `json:"size"`
	MaxSize int  `json:"maxSize"`
	Enabled bool `json:"enabled"`
}

// GetStats returns current cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.entries), MaxSize: c.maxSize, Enabled: c.enabled}
}

package symtab

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// StringCache interns strings so that, across every function the host
// compiler lowers concurrently, two requests to intern the same string
// (most often a hidden-variable name like "state" or "curExc", which every
// lowered iterator asks for) observe the same backing string and never
// duplicate the work of allocating and registering it with whatever global
// table the host keeps.
//
// spec.md §5 describes the symbol/identifier/string caches as "process-wide
// but treated as read-or-intern-only" and "assumed externally serialized".
// singleflight.Group is what actually provides that external serialization
// here: concurrent Intern calls for the same key collapse into one
// in-flight call instead of racing to populate the map twice.
type StringCache struct {
	group singleflight.Group

	mu     sync.RWMutex
	values map[string]string
}

// NewStringCache returns an empty cache.
func NewStringCache() *StringCache {
	return &StringCache{values: make(map[string]string)}
}

// Intern returns the cached copy of s, populating the cache on first use.
func (c *StringCache) Intern(s string) string {
	if v, ok := c.lookup(s); ok {
		return v
	}
	v, _, _ := c.group.Do(s, func() (any, error) {
		if v, ok := c.lookup(s); ok {
			return v, nil
		}
		c.mu.Lock()
		c.values[s] = s
		c.mu.Unlock()
		return s, nil
	})
	return v.(string)
}

func (c *StringCache) lookup(s string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[s]
	return v, ok
}

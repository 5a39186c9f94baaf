package discovery

import "sync"

// loadCache records, per handler path, the artifact path that was last
// loaded for it, and forgets that record when a reload evicts the path.
// The engine loads every handler straight from its own .so path and
// records that same path as the artifact; nothing copies an artifact to a
// fresh path. Go's plugin package never unloads a loaded .so and returns
// the already-opened plugin.Plugin when the exact same path is opened
// again, so a .so rebuilt in place at the same path keeps serving the code
// that was first loaded from it.
type loadCache struct {
	mu   sync.Mutex
	seen map[string]string // original handler path -> last loaded artifact path
}

func newLoadCache() *loadCache {
	return &loadCache{seen: make(map[string]string)}
}

// Evict forgets the artifact recorded for path.
func (c *loadCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, path)
}

// Remember records which artifact path was last loaded for path.
func (c *loadCache) Remember(path, artifact string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[path] = artifact
}

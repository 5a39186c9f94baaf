package registry

import (
	"sync"
	"sync/atomic"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// Registry owns the live Snapshot and serializes writers. Readers call
// Current() and never block on writers; writers serialize through mu so
// that "only one reload-publish for a given entry may be in flight at a
// time" (spec.md §5).
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New creates an empty Registry.
func New() *Registry {
	r := &Registry{}
	r.current.Store(emptySnapshot())
	return r
}

// Current returns the live snapshot. Safe for concurrent use.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// ReplaceAll atomically swaps in a fresh full scan's results: every
// existing route is discarded and replaced by routes/errs. Used for cold
// start and full rescans. Duplicate (method, urlTemplate) keys within
// routes are resolved by keeping the first and recording a loader error for
// the rest, per spec.md §4.2 ("Duplicate ... keep the first").
func (r *Registry) ReplaceAll(routes []api.Route, errs []api.LoaderError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := emptySnapshot()
	next.errors = append(next.errors, errs...)

	for _, route := range routes {
		key := route.Key()
		if existing, ok := next.routes[key]; ok {
			next.errors = append(next.errors, api.LoaderError{
				FilePath: route.FilePath,
				Type:     api.ErrUnknown,
				Message:  "duplicate route " + string(key.Method) + " " + key.URLTemplate + "; keeping " + existing.FilePath,
			})
			continue
		}
		next.routes[key] = route
	}

	r.current.Store(next)
	logging.Debug("Registry", "published snapshot with %d routes, %d loader errors", len(next.routes), len(next.errors))
}

// Apply performs an incremental update: upsertRoutes are added/replaced,
// removeKeys are deleted, and newErrors replace any previously recorded
// errors for the same file paths (affectedFiles). This is how the
// hot-reload watcher (C4) publishes a rebuild of only the affected subset
// without disturbing unrelated routes, per spec.md §4.4 step 3-4.
func (r *Registry) Apply(upsertRoutes []api.Route, removeKeys []api.RouteKey, affectedFiles []string, newErrors []api.LoaderError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()
	next := emptySnapshot()
	for k, v := range prev.routes {
		next.routes[k] = v
	}

	affected := make(map[string]bool, len(affectedFiles))
	for _, f := range affectedFiles {
		affected[f] = true
	}
	for _, e := range prev.errors {
		if !affected[e.FilePath] {
			next.errors = append(next.errors, e)
		}
	}
	next.errors = append(next.errors, newErrors...)

	for _, key := range removeKeys {
		delete(next.routes, key)
	}

	for _, route := range upsertRoutes {
		key := route.Key()
		if existing, ok := next.routes[key]; ok && existing.FilePath != route.FilePath && !affected[existing.FilePath] {
			next.errors = append(next.errors, api.LoaderError{
				FilePath: route.FilePath,
				Type:     api.ErrUnknown,
				Message:  "duplicate route " + string(key.Method) + " " + key.URLTemplate + "; keeping " + existing.FilePath,
			})
			continue
		}
		next.routes[key] = route
	}

	r.current.Store(next)
	logging.Debug("Registry", "applied incremental update: %d upserts, %d removals, now %d routes",
		len(upsertRoutes), len(removeKeys), len(next.routes))
}

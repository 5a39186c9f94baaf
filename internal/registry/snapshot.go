package registry

import "github.com/easynet-world/easy-mcp-server/internal/api"

// Snapshot is an immutable view of the route table, safe for concurrent
// readers without synchronization. It is never mutated after publication;
// producing a new state means building and publishing a new Snapshot.
type Snapshot struct {
	routes map[api.RouteKey]api.Route
	errors []api.LoaderError
}

// Routes returns every route in the snapshot, in no particular order.
func (s *Snapshot) Routes() []api.Route {
	if s == nil {
		return nil
	}
	out := make([]api.Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	return out
}

// Lookup returns the route for key, if present.
func (s *Snapshot) Lookup(key api.RouteKey) (api.Route, bool) {
	if s == nil {
		return api.Route{}, false
	}
	r, ok := s.routes[key]
	return r, ok
}

// Errors returns the loader errors recorded as of this snapshot.
func (s *Snapshot) Errors() []api.LoaderError {
	if s == nil {
		return nil
	}
	out := make([]api.LoaderError, len(s.errors))
	copy(out, s.errors)
	return out
}

// Valid returns only the routes whose handler has a callable process
// contract, per spec.md §4.3 ("Validation pass"). In this Go port every
// successfully discovered route always has a callable handler.Handler (a
// route with no callable contract is rejected at discovery time and
// recorded as a loader error instead of being admitted to the snapshot),
// so Valid is equivalent to Routes; it exists so callers (C6 in particular)
// have a single stable name for "routes eligible for tool synthesis".
func (s *Snapshot) Valid() []api.Route {
	return s.Routes()
}

func emptySnapshot() *Snapshot {
	return &Snapshot{routes: map[api.RouteKey]api.Route{}}
}

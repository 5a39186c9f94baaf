package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easynet-world/easy-mcp-server/internal/api"
)

func TestReplaceAllDeduplicatesKeepingFirst(t *testing.T) {
	r := New()
	r.ReplaceAll([]api.Route{
		{Method: api.MethodGet, URLTemplate: "/users", FilePath: "first.so"},
		{Method: api.MethodGet, URLTemplate: "/users", FilePath: "second.so"},
		{Method: api.MethodPost, URLTemplate: "/users", FilePath: "third.so"},
	}, nil)

	snap := r.Current()
	require.Len(t, snap.Routes(), 2)
	require.Len(t, snap.Errors(), 1)

	route, ok := snap.Lookup(api.RouteKey{Method: api.MethodGet, URLTemplate: "/users"})
	require.True(t, ok)
	require.Equal(t, "first.so", route.FilePath)
}

func TestApplyIncrementalUpdatePreservesUnrelatedRoutes(t *testing.T) {
	r := New()
	r.ReplaceAll([]api.Route{
		{Method: api.MethodGet, URLTemplate: "/a", FilePath: "a.so"},
		{Method: api.MethodGet, URLTemplate: "/b", FilePath: "b.so"},
	}, nil)

	r.Apply(
		[]api.Route{{Method: api.MethodGet, URLTemplate: "/a", FilePath: "a.so"}},
		nil,
		[]string{"a.so"},
		nil,
	)

	snap := r.Current()
	require.Len(t, snap.Routes(), 2)
	_, ok := snap.Lookup(api.RouteKey{Method: api.MethodGet, URLTemplate: "/b"})
	require.True(t, ok)
}

func TestApplyRemovesDeletedRoute(t *testing.T) {
	r := New()
	r.ReplaceAll([]api.Route{
		{Method: api.MethodGet, URLTemplate: "/a", FilePath: "a.so"},
	}, nil)

	r.Apply(nil, []api.RouteKey{{Method: api.MethodGet, URLTemplate: "/a"}}, []string{"a.so"}, nil)

	snap := r.Current()
	require.Empty(t, snap.Routes())
}

func TestCurrentSnapshotIsImmutable(t *testing.T) {
	r := New()
	r.ReplaceAll([]api.Route{{Method: api.MethodGet, URLTemplate: "/a", FilePath: "a.so"}}, nil)
	first := r.Current()

	r.ReplaceAll([]api.Route{{Method: api.MethodGet, URLTemplate: "/b", FilePath: "b.so"}}, nil)
	second := r.Current()

	require.Len(t, first.Routes(), 1)
	require.Len(t, second.Routes(), 1)
	_, ok := first.Lookup(api.RouteKey{Method: api.MethodGet, URLTemplate: "/b"})
	require.False(t, ok)
}

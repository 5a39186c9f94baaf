package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

// fakeLoader avoids plugin.Open in tests: every .so path simply maps to a
// stub handler, unless the path is listed in fail (which returns an error).
type fakeLoader struct {
	fail map[string]error
}

func (f fakeLoader) Load(path string) (handler.Handler, api.Capabilities, error) {
	if err, ok := f.fail[path]; ok {
		return nil, api.Capabilities{}, err
	}
	return handler.HandlerFunc(func(ctx context.Context, req *handler.Request) (*handler.Response, error) {
		return &handler.Response{StatusCode: 200, Body: map[string]interface{}{"ok": true}}, nil
	}), api.Capabilities{IsPlainFunction: true}, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))
}

func TestEngineScanDiscoversRoutes(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "users", "get.so"))
	touch(t, filepath.Join(root, "users", "[id]", "get.so"))
	touch(t, filepath.Join(root, "users", "get.test.so"))

	reg := registry.New()
	eng := &Engine{RootDir: root, Loader: fakeLoader{}, Sink: NewStack(), Writer: reg, cache: newLoadCache()}

	require.NoError(t, eng.Scan())

	snap := reg.Current()
	routes := snap.Routes()
	require.Len(t, routes, 2)

	_, ok := snap.Lookup(api.RouteKey{Method: api.MethodGet, URLTemplate: "/users"})
	require.True(t, ok)
	_, ok = snap.Lookup(api.RouteKey{Method: api.MethodGet, URLTemplate: "/users/{id}"})
	require.True(t, ok)
}

func TestEngineScanRecordsInvalidMethod(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "users", "fetch.so"))

	reg := registry.New()
	eng := &Engine{RootDir: root, Loader: fakeLoader{}, Sink: NewStack(), Writer: reg, cache: newLoadCache()}
	require.NoError(t, eng.Scan())

	snap := reg.Current()
	require.Empty(t, snap.Routes())
	require.Len(t, snap.Errors(), 1)
}

func TestEngineScanInstallsMiddleware(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "users", "middleware.so"))
	touch(t, filepath.Join(root, "users", "get.so"))

	reg := registry.New()
	sink := NewStack()
	eng := &Engine{RootDir: root, Loader: fakeLoader{}, Sink: sink, Writer: reg, cache: newLoadCache()}
	require.NoError(t, eng.Scan())

	layers := sink.Active()
	require.Len(t, layers, 1)
	require.Equal(t, "/users", layers[0].URLPrefix)
}

func TestEngineScanDuplicateRouteKeepsFirst(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "users", "get.so"))
	touch(t, filepath.Join(root, "users", "list", "get.so"))
	// Can't truly create two files mapping to the same key without two
	// directories producing the same template; simulate via registry API
	// directly instead for determinism.
	reg := registry.New()
	reg.ReplaceAll([]api.Route{
		{Method: api.MethodGet, URLTemplate: "/users", FilePath: "a"},
		{Method: api.MethodGet, URLTemplate: "/users", FilePath: "b"},
	}, nil)
	snap := reg.Current()
	require.Len(t, snap.Routes(), 1)
	require.Len(t, snap.Errors(), 1)
	route, _ := snap.Lookup(api.RouteKey{Method: api.MethodGet, URLTemplate: "/users"})
	require.Equal(t, "a", route.FilePath)
}

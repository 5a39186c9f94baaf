package reload

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

type fakeEngine struct {
	mu            sync.Mutex
	reloadCalls   [][]string
	removedKeys   []api.RouteKey
	removedPaths  []string
}

func (f *fakeEngine) ReloadPaths(paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]string(nil), paths...)
	f.reloadCalls = append(f.reloadCalls, cp)
	return nil
}

func (f *fakeEngine) RemoveKeys(keys []api.RouteKey, filePaths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedKeys = append(f.removedKeys, keys...)
	f.removedPaths = append(f.removedPaths, filePaths...)
}

func (f *fakeEngine) snapshot() ([][]string, []api.RouteKey, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.reloadCalls...),
		append([]api.RouteKey(nil), f.removedKeys...),
		append([]string(nil), f.removedPaths...)
}

func TestQueueCoalescesBurstsIntoOneReload(t *testing.T) {
	dir := t.TempDir()
	eng := &fakeEngine{}
	var reloads int32
	var mu sync.Mutex
	w := New(dir, "", eng, registry.New(), func() {
		mu.Lock()
		reloads++
		mu.Unlock()
	})

	path := filepath.Join(dir, "get.so")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w.queue(path)
	time.Sleep(50 * time.Millisecond)
	w.queue(path)

	time.Sleep(DebounceInterval + 150*time.Millisecond)

	calls, _, _ := eng.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, []string{path}, calls[0])

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int32(1), reloads)
}

func TestReloadResolvesDeletionKeysFromPriorSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "get.so")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	reg := registry.New()
	route := api.Route{Method: api.MethodGet, URLTemplate: "/widgets", FilePath: path}
	reg.ReplaceAll([]api.Route{route}, nil)

	eng := &fakeEngine{}
	w := New(dir, "", eng, reg, nil)
	w.snapshotFileKeys()

	require.NoError(t, os.Remove(path))
	w.reload([]string{path}, 0)

	_, removedKeys, removedPaths := eng.snapshot()
	require.Equal(t, []api.RouteKey{route.Key()}, removedKeys)
	require.Equal(t, []string{path}, removedPaths)
}

func TestReloadSupersededByNewerEpochSkipsCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "get.so")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	eng := &fakeEngine{}
	var called bool
	w := New(dir, "", eng, registry.New(), func() { called = true })

	w.epoch = 5
	w.reload([]string{path}, 1)

	require.False(t, called)
	calls, _, _ := eng.snapshot()
	require.Len(t, calls, 1, "ReloadPaths still runs even when the reload is superseded")
}

func TestStartWatchesRootAndTriggersReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "users")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	eng := &fakeEngine{}
	done := make(chan struct{}, 1)
	w := New(dir, "", eng, registry.New(), func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(sub, "get.so")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload to be triggered")
	}

	calls, _, _ := eng.snapshot()
	require.NotEmpty(t, calls)
}

func TestRelevantMatchesEnvFilesOutsideRoot(t *testing.T) {
	dir := t.TempDir()
	envDir := t.TempDir()
	w := New(dir, envDir, &fakeEngine{}, registry.New(), nil)

	require.True(t, w.underRoot(filepath.Join(dir, "get.so")))
	require.False(t, w.underRoot(filepath.Join(envDir, ".env")))
	require.True(t, w.relevant(fsnotify.Event{Name: filepath.Join(envDir, ".env")}))
}

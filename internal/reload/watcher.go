// Package reload implements the hot-reload watcher (spec.md §4.4, component
// C4). It watches the discovery root recursively plus ".env*" files
// independently, coalesces bursts of filesystem events with a debounce
// window, and drives the discovery engine's incremental reload entry
// points. Grounded on giantswarm-muster's internal/teleport.CertWatcher:
// same fsnotify.Watcher/Events/Errors-channel-captured-before-unlock
// pattern, same time.AfterFunc debounce timer guarded by its own mutex.
package reload

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/discovery"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// DebounceInterval is the coalescing window between the last observed
// filesystem event and the reload it triggers, per spec.md §4.4 ("~300ms").
const DebounceInterval = 300 * time.Millisecond

// Engine is the subset of *discovery.Engine the watcher drives.
type Engine interface {
	ReloadPaths(paths []string) error
	RemoveKeys(keys []api.RouteKey, filePaths []string)
}

// Watcher is the hot-reload watcher. It owns no routes itself: it tracks
// enough of the previous registry snapshot (FilePath -> []RouteKey) to
// resolve deletion keys for files that vanish between events, since
// Engine.ReloadPaths cannot recompute a key from a file that is gone.
type Watcher struct {
	RootDir string
	EnvDir  string
	Engine  Engine
	Reg     *registry.Registry

	// OnReload is called after every reload that is not superseded by a
	// newer one (successful or not),
	// so C10 can refresh its exposed tool set and, per spec.md §4.4 step 4,
	// emit notifications/tools/list_changed.
	OnReload func()

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool
	watchedDirs map[string]bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	pending       map[string]bool

	fileKeys map[string][]api.RouteKey

	// epoch increments on every reload start. A reload whose epoch is no
	// longer current when it finishes skips the file-key refresh and the
	// OnReload callback; the registry update its Engine calls already
	// published stays in place.
	epochMu sync.Mutex
	epoch   uint64
}

// New builds a watcher over rootDir (the discovery root, walked
// recursively) and envDir (where ".env*" files are looked for, watched
// non-recursively). reg supplies the FilePath -> RouteKey associations
// needed to resolve deletions.
func New(rootDir, envDir string, engine Engine, reg *registry.Registry, onReload func()) *Watcher {
	return &Watcher{
		RootDir:     rootDir,
		EnvDir:      envDir,
		Engine:      engine,
		Reg:         reg,
		OnReload:    onReload,
		watchedDirs: make(map[string]bool),
		pending:     make(map[string]bool),
		fileKeys:    make(map[string][]api.RouteKey),
	}
}

// Start begins watching. It is a no-op if already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	w.stopCh = make(chan struct{})
	w.running = true
	w.snapshotFileKeys()

	if err := w.addDirRecursive(w.RootDir); err != nil {
		logging.Warn("ReloadWatcher", "failed to watch discovery root %s: %v", w.RootDir, err)
	}
	if w.EnvDir != "" && w.EnvDir != w.RootDir {
		if err := fsw.Add(w.EnvDir); err != nil {
			logging.Warn("ReloadWatcher", "failed to watch env dir %s: %v", w.EnvDir, err)
		} else {
			w.watchedDirs[w.EnvDir] = true
		}
	}

	eventsCh := fsw.Events
	errorsCh := fsw.Errors
	go w.processEvents(eventsCh, errorsCh)

	logging.Info("ReloadWatcher", "watching %s (and %s for env files)", w.RootDir, w.EnvDir)
	return nil
}

// Stop halts the watcher and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		err := w.fsWatcher.Close()
		w.fsWatcher = nil
		return err
	}
	return nil
}

func (w *Watcher) addDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := w.fsWatcher.Add(path); addErr != nil {
			return addErr
		}
		w.watchedDirs[path] = true
		return nil
	})
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("ReloadWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.underRoot(event.Name) {
			w.mu.Lock()
			if w.running {
				_ = w.addDirRecursive(event.Name)
			}
			w.mu.Unlock()
		}
	}

	if !w.relevant(event) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.queue(event.Name)
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if w.underRoot(event.Name) {
		return true
	}
	base := filepath.Base(event.Name)
	return strings.HasPrefix(base, ".env")
}

func (w *Watcher) underRoot(path string) bool {
	rel, err := filepath.Rel(w.RootDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) queue(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	w.pending[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(DebounceInterval, w.runDebouncedReload)
}

func (w *Watcher) runDebouncedReload() {
	w.debounceMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.debounceMu.Unlock()

	if len(paths) == 0 {
		return
	}

	w.epochMu.Lock()
	w.epoch++
	myEpoch := w.epoch
	w.epochMu.Unlock()

	w.reload(paths, myEpoch)
}

// reload resolves deletions against the previously recorded FilePath ->
// RouteKey map, calls Engine.RemoveKeys for those, Engine.ReloadPaths for
// everything else, and, if a newer reload started while this one was in
// flight, skips the file-key refresh and OnReload (the Engine calls have
// already published their registry update). Errors during reload do not
// unload the prior snapshot: neither
// Engine entry point ever clears the registry wholesale, only Apply's
// incremental upsert/remove.
func (w *Watcher) reload(paths []string, myEpoch uint64) {
	var existing, deleted []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			deleted = append(deleted, p)
			continue
		}
		existing = append(existing, p)
	}

	for _, p := range deleted {
		keys := w.fileKeys[p]
		if len(keys) == 0 {
			continue
		}
		w.Engine.RemoveKeys(keys, []string{p})
	}

	if len(existing) > 0 {
		if err := w.Engine.ReloadPaths(existing); err != nil {
			logging.Warn("ReloadWatcher", "reload failed for %v: %v", existing, err)
		}
	}

	w.epochMu.Lock()
	superseded := myEpoch != w.epoch
	w.epochMu.Unlock()
	if superseded {
		return
	}

	w.snapshotFileKeys()
	for _, p := range deleted {
		delete(w.fileKeys, p)
	}

	if w.OnReload != nil {
		w.OnReload()
	}
}

// snapshotFileKeys records the current registry's FilePath -> []RouteKey
// associations so a later deletion of one of these files can still resolve
// the keys it used to own.
func (w *Watcher) snapshotFileKeys() {
	if w.Reg == nil {
		return
	}
	snap := w.Reg.Current()
	next := make(map[string][]api.RouteKey)
	for _, r := range snap.Routes() {
		next[r.FilePath] = append(next[r.FilePath], r.Key())
	}
	w.fileKeys = next
}

var _ Engine = (*discovery.Engine)(nil)

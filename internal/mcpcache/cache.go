// Package mcpcache implements the MCP cache manager (spec.md §4.11,
// component C11): two lazily-populated caches, one over a "prompts"
// subtree and one over a "resources" subtree of the MCP base path, each
// keyed by file path relative to its root. Grounded on
// giantswarm-muster/internal/teleport.CertWatcher's fsnotify usage for the
// watch side; the cache-map-with-per-type-lock shape is this package's own
// answer to spec.md §5's "Cache maps use per-type locks with short
// critical sections" requirement.
package mcpcache

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// Kind distinguishes the two cache tiers.
type Kind int

const (
	Prompts Kind = iota
	Resources
)

func (k Kind) String() string {
	if k == Prompts {
		return "prompts"
	}
	return "resources"
}

// Entry is a parsed prompt/resource file, per spec.md §3's CacheEntry.
type Entry struct {
	RelativePath  string
	Name          string
	Format        string
	Content       string
	Parameters    []string
	HasParameters bool
	ModTime       time.Time
}

var paramPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// recognizedFormats maps a file extension to the format label recorded on
// the entry. Extensions absent from this table are ignored entirely, per
// spec.md §4.11.
var recognizedFormats = map[string]string{
	".md":   "markdown",
	".txt":  "text",
	".js":   "javascript",
	".ts":   "typescript",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

type tier struct {
	mu      sync.RWMutex
	root    string
	entries map[string]Entry

	hits   atomic.Int64
	misses atomic.Int64
}

func newTier(root string) *tier {
	return &tier{root: root, entries: make(map[string]Entry)}
}

func (t *tier) get(relPath string) (Entry, bool, error) {
	t.mu.RLock()
	e, ok := t.entries[relPath]
	t.mu.RUnlock()
	if ok {
		t.hits.Add(1)
		return e, true, nil
	}
	t.misses.Add(1)

	abs := filepath.Join(t.root, relPath)
	ext := strings.ToLower(filepath.Ext(abs))
	format, known := recognizedFormats[ext]
	if !known {
		return Entry{}, false, nil
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return Entry{}, false, err
	}
	info, statErr := os.Stat(abs)
	var mtime time.Time
	if statErr == nil {
		mtime = info.ModTime()
	}

	content := string(raw)
	params := extractParameters(content)
	entry := Entry{
		RelativePath:  relPath,
		Name:          baseNameWithoutExt(relPath),
		Format:        format,
		Content:       content,
		Parameters:    params,
		HasParameters: len(params) > 0,
		ModTime:       mtime,
	}

	t.mu.Lock()
	t.entries[relPath] = entry
	t.mu.Unlock()
	return entry, true, nil
}

func (t *tier) evict(relPath string) {
	t.mu.Lock()
	delete(t.entries, relPath)
	t.mu.Unlock()
}

// walk returns the relative path of every file under t.root whose
// extension is in recognizedFormats. A root that does not exist yet
// (no prompts/resources directory created) is treated as empty, not
// an error.
func (t *tier) walk() ([]string, error) {
	if _, statErr := os.Stat(t.root); statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, nil
		}
		return nil, statErr
	}

	var out []string
	err := filepath.WalkDir(t.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, known := recognizedFormats[strings.ToLower(filepath.Ext(path))]; !known {
			return nil
		}
		rel, relErr := filepath.Rel(t.root, path)
		if relErr != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

func (t *tier) list() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

func (t *tier) stats() (hits, misses int64) {
	return t.hits.Load(), t.misses.Load()
}

func extractParameters(content string) []string {
	matches := paramPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func baseNameWithoutExt(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Manager owns the prompts and resources tiers and the filesystem watcher
// that invalidates them.
type Manager struct {
	BaseDir string

	prompts   *tier
	resources *tier

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool
}

// New builds a cache manager rooted at baseDir/prompts and
// baseDir/resources.
func New(baseDir string) *Manager {
	return &Manager{
		BaseDir:   baseDir,
		prompts:   newTier(filepath.Join(baseDir, "prompts")),
		resources: newTier(filepath.Join(baseDir, "resources")),
	}
}

func (m *Manager) tierFor(kind Kind) *tier {
	if kind == Prompts {
		return m.prompts
	}
	return m.resources
}

// Get returns the cached entry for relPath under kind's tier, populating
// it on first read, per spec.md §4.11.
func (m *Manager) Get(kind Kind, relPath string) (Entry, bool, error) {
	return m.tierFor(kind).get(relPath)
}

// List returns every currently cached entry for kind. It does not walk the
// filesystem for uncached files; callers that need the full set should
// call Discover instead.
func (m *Manager) List(kind Kind) []Entry {
	return m.tierFor(kind).list()
}

// Discover walks kind's root for every recognized file, populating the
// cache (via Get) for any not already present, and returns the full set.
// This is how prompts/list and resources/list enumerate what's available,
// since List alone only reports what some prior Get already cached.
func (m *Manager) Discover(kind Kind) ([]Entry, error) {
	t := m.tierFor(kind)
	rels, err := t.walk()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Entry, 0, len(rels))
	for _, rel := range rels {
		entry, ok, err := t.get(rel)
		if err != nil {
			logging.Warn("MCPCache", "discovering %s/%s: %v", kind, rel, err)
			continue
		}
		if ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Stats returns hit/miss counters for kind, for observability.
func (m *Manager) Stats(kind Kind) (hits, misses int64) {
	return m.tierFor(kind).stats()
}

// Start watches both subtrees and evicts entries on add/change/unlink.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.fsWatcher = fsw
	m.stopCh = make(chan struct{})
	m.running = true

	for _, root := range []string{m.prompts.root, m.resources.root} {
		if err := addRecursive(fsw, root); err != nil && !os.IsNotExist(err) {
			logging.Warn("MCPCache", "failed to watch %s: %v", root, err)
		}
	}

	eventsCh := fsw.Events
	errorsCh := fsw.Errors
	go m.processEvents(eventsCh, errorsCh)

	logging.Info("MCPCache", "watching %s and %s", m.prompts.root, m.resources.root)
	return nil
}

// Stop releases the filesystem watcher.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	if m.fsWatcher != nil {
		err := m.fsWatcher.Close()
		m.fsWatcher = nil
		return err
	}
	return nil
}

func (m *Manager) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("MCPCache", err, "fsnotify error")
		}
	}
}

func (m *Manager) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			m.mu.Lock()
			if m.running {
				_ = addRecursive(m.fsWatcher, event.Name)
			}
			m.mu.Unlock()
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if rel, ok := relUnder(m.prompts.root, event.Name); ok {
		m.prompts.evict(rel)
		logging.Debug("MCPCache", "evicted prompts entry %s", rel)
		return
	}
	if rel, ok := relUnder(m.resources.root, event.Name); ok {
		m.resources.evict(rel)
		logging.Debug("MCPCache", "evicted resources entry %s", rel)
	}
}

func relUnder(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

// Describe renders a short human-readable summary of both tiers' hit/miss
// counters.
func (m *Manager) Describe() string {
	ph, pm := m.prompts.stats()
	rh, rm := m.resources.stats()
	return fmt.Sprintf("prompts: %d hits/%d misses, resources: %d hits/%d misses", ph, pm, rh, rm)
}

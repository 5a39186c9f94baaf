package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/mcpclient"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// ClientFactory builds a not-yet-started Client for an entry. Production
// code uses internal/mcpclient; tests substitute a fake so they never spawn
// a real process, mirroring the Loader-interface pattern in
// internal/discovery/engine.go.
type ClientFactory func(entry Entry, resolvedCwd string) Client

// DefaultClientFactory builds the production mcpclient.StdioClient or
// mcpclient.HTTPClient for an entry.
func DefaultClientFactory(entry Entry, resolvedCwd string) Client {
	if entry.HTTP != nil {
		return mcpclient.NewHTTPClient(entry.HTTP.URL, nil)
	}
	return mcpclient.NewStdioClient(entry.Stdio.Command, entry.Stdio.Args, entry.Stdio.Env, resolvedCwd)
}

// Supervisor owns the live Bridge table, per spec.md §3 ("Single owner =
// supervisor") and implements the state machine and dedup/circularity
// rules of spec.md §4.7 (component C7).
type Supervisor struct {
	Factory ClientFactory

	mu       sync.RWMutex
	byID     map[string]*Bridge
	nameToID map[string]string
	failed   map[string]bool
	epoch    int

	group singleflight.Group

	chainMu sync.Mutex
	chain   []string
}

// NewSupervisor creates an empty supervisor using the production client
// factory.
func NewSupervisor() *Supervisor {
	return &Supervisor{
		Factory:  DefaultClientFactory,
		byID:     make(map[string]*Bridge),
		nameToID: make(map[string]string),
		failed:   make(map[string]bool),
	}
}

// Snapshot is an immutable view of the bridge table for readers (C10),
// per spec.md §3 "Snapshot".
type Snapshot struct {
	bridges map[string]Bridge // identifier -> copy
	names   map[string]string // name -> identifier
}

// ByName returns the bridge registered under name, if any.
func (s Snapshot) ByName(name string) (Bridge, bool) {
	id, ok := s.names[name]
	if !ok {
		return Bridge{}, false
	}
	b, ok := s.bridges[id]
	return b, ok
}

// Ready returns every bridge currently in the ready state.
func (s Snapshot) Ready() []Bridge {
	out := make([]Bridge, 0, len(s.bridges))
	for _, b := range s.bridges {
		if b.State == StateReady {
			out = append(out, b)
		}
	}
	return out
}

// All returns every tracked bridge regardless of state.
func (s Snapshot) All() []Bridge {
	out := make([]Bridge, 0, len(s.bridges))
	for _, b := range s.bridges {
		out = append(out, b)
	}
	return out
}

// Snapshot returns a consistent, read-only view of the bridge table.
func (sv *Supervisor) Snapshot() Snapshot {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	snap := Snapshot{bridges: make(map[string]Bridge, len(sv.byID)), names: make(map[string]string, len(sv.nameToID))}
	for id, b := range sv.byID {
		cp := *b
		cp.client = nil
		snap.bridges[id] = cp
	}
	for name, id := range sv.nameToID {
		snap.names[name] = id
	}
	return snap
}

// ClientFor returns the live Client for a ready bridge by name, used by the
// multiplexer (C10) to route a tools/call.
func (sv *Supervisor) ClientFor(name string) (Client, bool) {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	id, ok := sv.nameToID[name]
	if !ok {
		return nil, false
	}
	b, ok := sv.byID[id]
	if !ok || b.State != StateReady || b.client == nil {
		return nil, false
	}
	return b.client, true
}

// resolveCwd returns the entry's configured cwd, resolved to an absolute
// path against the process's working directory (so relative cwds entered
// from different manifest locations still hash consistently).
func resolveCwd(e Entry) string {
	if e.Stdio == nil || e.Stdio.Cwd == "" {
		wd, _ := os.Getwd()
		return wd
	}
	if filepath.IsAbs(e.Stdio.Cwd) {
		return e.Stdio.Cwd
	}
	wd, _ := os.Getwd()
	return filepath.Join(wd, e.Stdio.Cwd)
}

// Ensure starts (or reuses) the bridge for entry, applying dedup (spec.md
// §4.7 "If the identifier is already ready, the duplicate entry is
// silently coalesced"), circular-reference detection, and failure
// memoization (a bridge that is already `failed` this epoch is not
// retried). Concurrent Ensure calls for the same identifier are collapsed
// via singleflight, per SPEC_FULL's DOMAIN STACK wiring.
func (sv *Supervisor) Ensure(ctx context.Context, entry Entry) (Bridge, error) {
	if entry.IsDisabled() {
		return Bridge{}, fmt.Errorf("bridge %q is disabled", entry.Name)
	}

	resolvedCwd := ""
	if !entry.IsHTTP() {
		resolvedCwd = resolveCwd(entry)
	}
	id := Identifier(entry, resolvedCwd)

	sv.mu.RLock()
	if b, ok := sv.byID[id]; ok && b.State == StateReady {
		sv.mu.RUnlock()
		sv.linkName(entry.Name, id)
		logging.Debug("BridgeSupervisor", "coalescing %q onto already-ready bridge %s", entry.Name, id)
		return *withoutClient(b), nil
	}
	if sv.failed[id] {
		sv.mu.RUnlock()
		return Bridge{}, fmt.Errorf("bridge %q (%s) is sticky-failed this epoch", entry.Name, id)
	}
	sv.mu.RUnlock()

	if err := sv.pushChain(id); err != nil {
		return Bridge{}, err
	}
	defer sv.popChain(id)

	result, err, _ := sv.group.Do(id, func() (interface{}, error) {
		return sv.start(ctx, entry, id, resolvedCwd)
	})
	if err != nil {
		return Bridge{}, err
	}
	sv.linkName(entry.Name, id)
	return *result.(*Bridge), nil
}

func withoutClient(b *Bridge) *Bridge {
	cp := *b
	cp.client = nil
	return &cp
}

func (sv *Supervisor) linkName(name, id string) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.nameToID[name] = id
}

// pushChain implements circular-reference detection (spec.md §4.7): if id
// is already on the current loading chain, the bridge is refused.
func (sv *Supervisor) pushChain(id string) error {
	sv.chainMu.Lock()
	defer sv.chainMu.Unlock()

	for _, c := range sv.chain {
		if c == id {
			chain := append(append([]string{}, sv.chain...), id)
			logging.Warn("BridgeSupervisor", "circular bridge reference detected: %v", chain)
			return &api.CircularBridgeError{Identifier: id, Chain: chain}
		}
	}
	sv.chain = append(sv.chain, id)
	return nil
}

func (sv *Supervisor) popChain(id string) {
	sv.chainMu.Lock()
	defer sv.chainMu.Unlock()
	for i := len(sv.chain) - 1; i >= 0; i-- {
		if sv.chain[i] == id {
			sv.chain = append(sv.chain[:i], sv.chain[i+1:]...)
			return
		}
	}
}

func (sv *Supervisor) start(ctx context.Context, entry Entry, id, resolvedCwd string) (*Bridge, error) {
	transportKind := TransportHTTP
	if !entry.IsHTTP() {
		transportKind = TransportStdio
		if diag := checkCommandExists(entry.Stdio.Command, resolvedCwd, nil); diag != nil {
			sv.markFailed(id, entry.Name, transportKind, diag)
			return nil, fmt.Errorf("bridge %q: %s", entry.Name, diag.Message)
		}
	}

	b := &Bridge{Name: entry.Name, Identifier: id, Transport: transportKind, State: StateStarting}
	sv.publish(id, b)

	clientCtx, cancel := context.WithTimeout(ctx, mcpclient.DefaultHandshakeHardTimeout)
	defer cancel()

	c := sv.Factory(entry, resolvedCwd)
	start := time.Now()
	if err := c.Initialize(clientCtx); err != nil {
		diag := &Diagnostic{Command: commandLabel(entry), Message: err.Error()}
		if sc, ok := c.(stderrSource); ok {
			if stderr := sc.Stderr(); stderr != "" {
				diag.Message = fmt.Sprintf("%s (stderr: %s)", diag.Message, stderr)
			}
		}
		sv.markFailed(id, entry.Name, transportKind, diag)
		return nil, fmt.Errorf("bridge %q failed to start: %w", entry.Name, err)
	}

	tools, err := c.ListTools(ctx)
	if err != nil {
		logging.Warn("BridgeSupervisor", "bridge %q ready but tools/list failed: %v", entry.Name, err)
	}

	ready := &Bridge{
		Name: entry.Name, Identifier: id, Transport: transportKind,
		State: StateReady, ToolList: tools, StartedAt: start, client: c,
	}
	sv.publish(id, ready)
	logging.Info("BridgeSupervisor", "bridge %q ready (%d tools, %s)", entry.Name, len(tools), time.Since(start))
	return withoutClient(ready), nil
}

// stderrSource is implemented by mcpclient.StdioClient for diagnostic
// enrichment; checked via type assertion so Supervisor does not depend on
// the concrete stdio client type.
type stderrSource interface {
	Stderr() string
}

func commandLabel(e Entry) string {
	if e.HTTP != nil {
		return e.HTTP.URL
	}
	return e.Stdio.Command
}

func (sv *Supervisor) publish(id string, b *Bridge) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.byID[id] = b
}

func (sv *Supervisor) markFailed(id, name string, transportKind Transport, diag *Diagnostic) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.byID[id] = &Bridge{Name: name, Identifier: id, Transport: transportKind, State: StateFailed, LastError: diag}
	sv.failed[id] = true
}

// ReloadManifest reconciles the supervisor against a freshly parsed
// manifest: entries no longer present are stopped, the failed set is
// cleared (spec.md §4.7 "Failure memoization": "A manifest change clears
// the failed set"), and Ensure is called for every enabled entry so the
// next read sees the new state. The loading chain is not touched here;
// Ensure pushes and pops its own entries.
func (sv *Supervisor) ReloadManifest(ctx context.Context, m *Manifest) {
	sv.mu.Lock()
	sv.epoch++
	sv.failed = make(map[string]bool)

	keep := make(map[string]bool, len(m.Entries))
	for _, e := range m.Entries {
		if e.IsDisabled() {
			continue
		}
		cwd := ""
		if !e.IsHTTP() {
			cwd = resolveCwd(e)
		}
		keep[Identifier(e, cwd)] = true
	}

	var stale []*Bridge
	for id, b := range sv.byID {
		if !keep[id] {
			stale = append(stale, b)
			delete(sv.byID, id)
		}
	}
	for name, id := range sv.nameToID {
		if !keep[id] {
			delete(sv.nameToID, name)
		}
	}
	sv.mu.Unlock()

	for _, b := range stale {
		sv.stopOne(ctx, b)
	}

	for _, e := range m.Entries {
		if e.IsDisabled() {
			continue
		}
		if _, err := sv.Ensure(ctx, e); err != nil {
			logging.Warn("BridgeSupervisor", "reload: bridge %q not ready: %v", e.Name, err)
		}
	}
}

func (sv *Supervisor) stopOne(ctx context.Context, b *Bridge) {
	if b.client != nil {
		if err := b.client.Close(); err != nil {
			logging.Debug("BridgeSupervisor", "error closing bridge %q: %v", b.Name, err)
		}
	}
	logging.Info("BridgeSupervisor", "stopped bridge %q (%s)", b.Name, b.Identifier)
}

// Shutdown terminates every live bridge, per spec.md §5 ("supervisor sends
// terminate signal to every bridge").
func (sv *Supervisor) Shutdown(ctx context.Context) {
	sv.mu.Lock()
	all := make([]*Bridge, 0, len(sv.byID))
	for _, b := range sv.byID {
		all = append(all, b)
	}
	sv.byID = make(map[string]*Bridge)
	sv.nameToID = make(map[string]string)
	sv.mu.Unlock()

	for _, b := range all {
		sv.stopOne(ctx, b)
	}
}

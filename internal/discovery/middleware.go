package discovery

import (
	"sync"

	"github.com/easynet-world/easy-mcp-server/internal/api"
)

// CoreMiddlewareName tags a layer installed by the server itself (logging,
// CORS, body parsing, static) rather than by a discovered middleware.* file.
// Core layers are never evicted by a file-identity removal, per spec.md
// §4.4 step 2 ("Core middleware ... preserved — identified by a pinned
// allow-list, not by index position").
const CoreMiddlewareName = "__core__"

// MiddlewareSink is what the discovery engine registers and de-registers
// middleware against, per spec.md §4.2 ("MiddlewareSink"). The default
// implementation, Stack, keeps layers ordered by install time; the HTTP
// surface wraps requests in Stack.Active() order.
type MiddlewareSink interface {
	// Install adds a layer, replacing any existing layer installed by the
	// same FilePath (re-installing on reload updates in place).
	Install(layer api.MiddlewareLayer)
	// Uninstall removes every layer installed by filePath. Core layers
	// (FilePath == CoreMiddlewareName) are never removed by this call; use
	// UninstallCore explicitly if that is ever truly desired.
	Uninstall(filePath string)
}

// Stack is the default MiddlewareSink: an ordered list of layers readers
// can snapshot via Active().
type Stack struct {
	mu     sync.RWMutex
	layers []api.MiddlewareLayer
}

// NewStack creates an empty middleware stack.
func NewStack() *Stack {
	return &Stack{}
}

// Install implements MiddlewareSink.
func (s *Stack) Install(layer api.MiddlewareLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.layers {
		if l.FilePath == layer.FilePath {
			s.layers[i] = layer
			return
		}
	}
	s.layers = append(s.layers, layer)
}

// Uninstall implements MiddlewareSink.
func (s *Stack) Uninstall(filePath string) {
	if filePath == CoreMiddlewareName {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.layers[:0:0]
	for _, l := range s.layers {
		if l.FilePath != filePath {
			kept = append(kept, l)
		}
	}
	s.layers = kept
}

// Active returns a snapshot of the currently installed layers, in install
// order (core layers first, since they are installed once at startup).
func (s *Stack) Active() []api.MiddlewareLayer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.MiddlewareLayer, len(s.layers))
	copy(out, s.layers)
	return out
}

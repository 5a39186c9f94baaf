// Package httpapi implements the local HTTP surface of spec.md §6: health,
// route introspection, the synthesized OpenAPI document, the MCP tool
// list/execute bridge, bridge introspection/call endpoints, and the
// dynamic user-defined routes the discovery root produced. Grounded on
// the teacher's plain net/http usage elsewhere in the pack (no repo in
// _examples/ pulls in a router library for this): Server.ServeHTTP
// dispatches the fixed endpoints with a manual switch and falls back to a
// hand-rolled template matcher for the dynamic ones, since the route set
// changes at runtime under hot-reload and an http.ServeMux would need
// rebuilding on every registry publish.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/easynet-world/easy-mcp-server/internal/adapter"
	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/mcpcache"
	"github.com/easynet-world/easy-mcp-server/internal/metrics"
	mcpmux "github.com/easynet-world/easy-mcp-server/internal/mux"
	"github.com/easynet-world/easy-mcp-server/internal/openapi"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// RetryEngine is the subset of *discovery.Engine the admin retry endpoint
// needs. Kept as an interface for the same reason discovery.RegistryWriter
// is: callers substitute a fake in tests.
type RetryEngine interface {
	ReloadPaths(paths []string) error
}

// Server holds every dependency the HTTP surface reads from. It owns no
// mutable state of its own beyond the process start time and the
// notification hub; routes, bridges and caches are read through their own
// snapshot/locking mechanisms.
type Server struct {
	Title   string
	Version string
	BaseURL string

	Reg     *registry.Registry
	Sv      *bridge.Supervisor
	Mux     *mcpmux.Multiplexer
	Cache   *mcpcache.Manager
	Ad      *adapter.Adapter
	Metrics *metrics.Registry
	Engine  RetryEngine

	startTime time.Time
	hub       *notificationHub
}

// New builds an HTTP surface, with its own notification hub behind /ws.
func New(title, version, baseURL string, reg *registry.Registry, sv *bridge.Supervisor, mp *mcpmux.Multiplexer, cache *mcpcache.Manager, ad *adapter.Adapter, m *metrics.Registry, engine RetryEngine) *Server {
	return &Server{
		Title:     title,
		Version:   version,
		BaseURL:   baseURL,
		Reg:       reg,
		Sv:        sv,
		Mux:       mp,
		Cache:     cache,
		Ad:        ad,
		Metrics:   m,
		Engine:    engine,
		startTime: time.Now(),
		hub:       newNotificationHub(),
	}
}

// NotifyToolsChanged pushes a tools/list_changed-shaped notification to
// every connected websocket client, called by the reload watcher's
// OnReload callback.
func (s *Server) NotifyToolsChanged() {
	s.hub.broadcast(map[string]interface{}{
		"type": "notifications/tools/list_changed",
	})
}

// ServeHTTP dispatches fixed endpoints by exact path/prefix, falling back
// to dynamic-route matching against the current registry snapshot.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-Id", requestID)

	start := time.Now()
	route := routeLabel(r.URL.Path)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		elapsed := time.Since(start)
		if s.Metrics != nil {
			s.Metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route).Inc()
			s.Metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}
		logging.Debug("HTTPServer", "[%s] %s %s -> %d in %s", requestID, r.Method, r.URL.Path, rec.status, elapsed)
	}()

	switch {
	case r.URL.Path == "/health":
		s.handleHealth(rec, r)
	case r.URL.Path == "/api-info":
		s.handleAPIInfo(rec, r)
	case r.URL.Path == "/openapi.json":
		s.handleOpenAPI(rec, r)
	case r.URL.Path == "/docs":
		s.handleDocs(rec, r)
	case r.URL.Path == "/mcp/tools":
		s.handleMCPTools(rec, r)
	case strings.HasPrefix(r.URL.Path, "/mcp/execute/"):
		s.handleMCPExecute(rec, r)
	case r.URL.Path == "/bridge/list-tools":
		s.handleBridgeListTools(rec, r)
	case strings.HasPrefix(r.URL.Path, "/bridge/status/"):
		s.handleBridgeStatus(rec, r)
	case r.URL.Path == "/bridge/call-tool":
		s.handleBridgeCallTool(rec, r)
	case r.URL.Path == "/admin/retry-initialization":
		s.handleRetryInitialization(rec, r)
	case r.URL.Path == "/metrics":
		promhttp.HandlerFor(s.Metrics.Gatherer(), promhttp.HandlerOpts{}).ServeHTTP(rec, r)
	case r.URL.Path == "/ws":
		s.handleWebSocket(rec, r)
	default:
		s.handleDynamicRoute(rec, r)
	}
}

func routeLabel(path string) string {
	if strings.HasPrefix(path, "/mcp/execute/") {
		return "/mcp/execute/{toolName}"
	}
	if strings.HasPrefix(path, "/bridge/status/") {
		return "/bridge/status/{name}"
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// synthesizeOpenAPI is a small indirection so tests can avoid importing
// openapi directly through Server's exported surface.
func (s *Server) synthesizeOpenAPI() *openapi.Document {
	return openapi.Synthesize(s.Reg.Current(), s.Title, s.Version, s.BaseURL)
}

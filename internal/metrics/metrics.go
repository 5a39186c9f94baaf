// Package metrics wires Prometheus collectors (github.com/prometheus/
// client_golang, already part of the dependency graph via the teacher's
// own controller-runtime/metrics stack) into this server's own request
// and bridge paths, on a private registry rather than the global default
// one so tests can build a fresh Registry per case.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every collector this server emits.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	MCPToolCallsTotal   *prometheus.CounterVec
	BridgeRPCDuration   *prometheus.HistogramVec
	BridgeState         *prometheus.GaugeVec
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
}

// New builds a Registry with every collector registered on a fresh
// prometheus.Registry, so /metrics only ever reports this process's own
// series.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easy_mcp_server_http_requests_total",
			Help: "Total HTTP requests served, by method and route template.",
		}, []string{"method", "route"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "easy_mcp_server_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route template.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MCPToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easy_mcp_server_mcp_tool_calls_total",
			Help: "Total MCP tools/call invocations, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		BridgeRPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "easy_mcp_server_bridge_rpc_duration_seconds",
			Help:    "Bridge RPC latency in seconds, by bridge name and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"bridge", "method"}),
		BridgeState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "easy_mcp_server_bridge_state",
			Help: "1 if the bridge is in the given state, 0 otherwise.",
		}, []string{"bridge", "state"}),
		CacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easy_mcp_server_cache_hits_total",
			Help: "MCP cache hits, by tier (prompts/resources).",
		}, []string{"tier"}),
		CacheMissesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "easy_mcp_server_cache_misses_total",
			Help: "MCP cache misses, by tier (prompts/resources).",
		}, []string{"tier"}),
	}
}

// Gatherer exposes the underlying registry for promhttp.HandlerFor.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

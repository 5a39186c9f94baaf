// Package mux implements the MCP request multiplexer (spec.md §4.10,
// component C10). It wraps github.com/mark3labs/mcp-go/server's MCPServer
// the same way giantswarm-muster's internal/aggregator.AggregatorServer
// does: register ServerTool values with a Handler closure, and let the
// library itself answer initialize/tools-list/tools-call over whichever
// transport (stdio or streamable-HTTP) mounts it.
package mux

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/easynet-world/easy-mcp-server/internal/adapter"
	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/bridge"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/internal/mcpcache"
	"github.com/easynet-world/easy-mcp-server/internal/mcptools"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
	"github.com/easynet-world/easy-mcp-server/internal/telemetry"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// BridgeListToolsTimeout bounds how long tools/list waits on any one
// bridge, per spec.md §4.10 ("per-bridge failures and timeouts ... never
// fail the aggregate").
const BridgeListToolsTimeout = 3 * time.Second

// BridgeCallToolTimeout bounds a single routed tools/call.
const BridgeCallToolTimeout = 30 * time.Second

// owner records how a registered tool name resolves at call time: either
// to a local route or to a ready bridge's original tool name.
type owner struct {
	route      *api.Route
	bridgeName string
	bridgeTool string
}

// Multiplexer owns the live *mcpserver.MCPServer and keeps its tool,
// prompt and resource sets in sync with the route registry, bridge
// table, and C11's prompt/resource cache, per spec.md §4.10.
type Multiplexer struct {
	srv   *mcpserver.MCPServer
	reg   *registry.Registry
	sv    *bridge.Supervisor
	ad    *adapter.Adapter
	cache *mcpcache.Manager

	mu           sync.RWMutex
	owners       map[string]owner
	bridgeErr    map[string]string // bridge name -> last tools/list error, for §6's bridge-status surface
	promptNames  map[string]bool
	resourceURIs map[string]bool
}

// New builds a Multiplexer advertising tools/prompts/resources
// capabilities, mirroring mcpserver.NewMCPServer(title, version,
// WithToolCapabilities(true), ...) in the teacher's aggregator.Start.
// cache is C11's prompt/resource manager; prompts/list, prompts/get,
// resources/list and resources/read are all delegated to it, per
// spec.md §4.10.
func New(title, version string, reg *registry.Registry, sv *bridge.Supervisor, ad *adapter.Adapter, cache *mcpcache.Manager) *Multiplexer {
	srv := mcpserver.NewMCPServer(
		title,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
	)
	return &Multiplexer{
		srv:          srv,
		reg:          reg,
		sv:           sv,
		ad:           ad,
		cache:        cache,
		owners:       make(map[string]owner),
		bridgeErr:    make(map[string]string),
		promptNames:  make(map[string]bool),
		resourceURIs: make(map[string]bool),
	}
}

// Server returns the underlying mcp-go server for a transport (stdio or
// streamable-HTTP) to mount.
func (m *Multiplexer) Server() *mcpserver.MCPServer { return m.srv }

// BridgeStatus returns the last tools/list error recorded for a bridge
// name, if any, used by the /bridge/status/{name} HTTP endpoint.
func (m *Multiplexer) BridgeStatus(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	err, ok := m.bridgeErr[name]
	return err, ok
}

// ToolNames returns every exposed tool name, used by the /mcp/tools HTTP
// endpoint (spec.md §6).
func (m *Multiplexer) ToolNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.owners))
	for name := range m.owners {
		out = append(out, name)
	}
	return out
}

// Execute runs a tools/call for name with args directly (bypassing
// transport), used by the /mcp/execute/{toolName} HTTP endpoint (spec.md
// §6) so the HTTP and MCP surfaces share one dispatch path.
func (m *Multiplexer) Execute(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	m.mu.RLock()
	own, ok := m.owners[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	if own.route != nil {
		return m.localHandler(own.route)(ctx, req)
	}
	return m.bridgeHandler(own.bridgeName, own.bridgeTool)(ctx, req)
}

// Refresh rebuilds the exposed tool set from the current route registry
// snapshot and every ready bridge's tools/list, replacing whatever was
// registered before. Bridge tools/list calls run in parallel via
// errgroup; a bridge that errors or times out is recorded and skipped, it
// never fails the refresh as a whole, per spec.md §4.10.
func (m *Multiplexer) Refresh(ctx context.Context) {
	snap := m.reg.Current()
	localEntries := mcptools.SynthesizeEntries(snap)

	bridgeSnap := m.sv.Snapshot()
	ready := bridgeSnap.Ready()

	type bridgeResult struct {
		name  string
		tools []mcp.Tool
		err   error
	}
	results := make([]bridgeResult, len(ready))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range ready {
		i, b := i, b
		g.Go(func() error {
			client, ok := m.sv.ClientFor(b.Name)
			if !ok {
				results[i] = bridgeResult{name: b.Name, err: fmt.Errorf("bridge %q not ready", b.Name)}
				return nil
			}
			callCtx, cancel := context.WithTimeout(gctx, BridgeListToolsTimeout)
			defer cancel()
			tools, err := client.ListTools(callCtx)
			results[i] = bridgeResult{name: b.Name, tools: tools, err: err}
			return nil
		})
	}
	_ = g.Wait() // errors are captured per-result above, never propagated

	newOwners := make(map[string]owner, len(localEntries)+len(ready)*4)
	var serverTools []mcpserver.ServerTool

	for _, entry := range localEntries {
		route := entry.Route
		newOwners[entry.Tool.Name] = owner{route: &route}
		serverTools = append(serverTools, mcpserver.ServerTool{
			Tool:    entry.Tool,
			Handler: m.localHandler(&route),
		})
	}

	bridgeErrs := make(map[string]string)
	for _, res := range results {
		if res.err != nil {
			bridgeErrs[res.name] = res.err.Error()
			logging.Warn("MCPMultiplexer", "bridge %q tools/list failed: %v", res.name, res.err)
			continue
		}
		for _, tool := range res.tools {
			exposed := tool
			exposed.Name = res.name + "_" + tool.Name
			newOwners[exposed.Name] = owner{bridgeName: res.name, bridgeTool: tool.Name}
			serverTools = append(serverTools, mcpserver.ServerTool{
				Tool:    exposed,
				Handler: m.bridgeHandler(res.name, tool.Name),
			})
		}
	}

	m.mu.Lock()
	var stale []string
	for name := range m.owners {
		if _, ok := newOwners[name]; !ok {
			stale = append(stale, name)
		}
	}
	m.owners = newOwners
	m.bridgeErr = bridgeErrs
	m.mu.Unlock()

	if len(stale) > 0 {
		m.srv.DeleteTools(stale...)
	}
	if len(serverTools) > 0 {
		m.srv.AddTools(serverTools...)
	}

	m.refreshPrompts()
	m.refreshResources()
}

// refreshPrompts re-enumerates C11's prompts tier via Discover and
// registers one mcp-go prompt per cached file, so prompts/list and
// prompts/get are answered directly by the cache rather than by an
// empty capability, per spec.md §4.10's "delegated to C11".
func (m *Multiplexer) refreshPrompts() {
	entries, err := m.cache.Discover(mcpcache.Prompts)
	if err != nil {
		logging.Warn("MCPMultiplexer", "discovering prompts: %v", err)
		return
	}

	toAdd := make([]mcpserver.ServerPrompt, 0, len(entries))
	newNames := make(map[string]bool, len(entries))
	for _, e := range entries {
		newNames[e.Name] = true
		toAdd = append(toAdd, mcpserver.ServerPrompt{
			Prompt:  promptFromEntry(e),
			Handler: m.promptHandler(e.RelativePath),
		})
	}

	m.mu.Lock()
	var stale []string
	for name := range m.promptNames {
		if !newNames[name] {
			stale = append(stale, name)
		}
	}
	m.promptNames = newNames
	m.mu.Unlock()

	if len(stale) > 0 {
		m.srv.DeletePrompts(stale...)
	}
	if len(toAdd) > 0 {
		m.srv.AddPrompts(toAdd...)
	}
}

func promptFromEntry(e mcpcache.Entry) mcp.Prompt {
	args := make([]mcp.PromptArgument, 0, len(e.Parameters))
	for _, p := range e.Parameters {
		args = append(args, mcp.PromptArgument{Name: p, Required: true})
	}
	return mcp.Prompt{
		Name:        e.Name,
		Description: fmt.Sprintf("cached %s prompt at %s", e.Format, e.RelativePath),
		Arguments:   args,
	}
}

// promptHandler answers prompts/get for a cached prompt file, rendering
// its {{name}} placeholders against the caller's arguments.
func (m *Multiplexer) promptHandler(relPath string) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		entry, ok, err := m.cache.Get(mcpcache.Prompts, relPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("prompt %q not found", relPath)
		}
		text := renderTemplate(entry.Content, req.Params.Arguments)
		return &mcp.GetPromptResult{
			Description: entry.Name,
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.NewTextContent(text)},
			},
		}, nil
	}
}

// refreshResources mirrors refreshPrompts for C11's resources tier.
// mcp-go has no batch delete for resources (unlike DeleteTools and
// DeletePrompts), so stale entries are removed one at a time via
// RemoveResource, the same limitation giantswarm-muster's aggregator
// works around.
func (m *Multiplexer) refreshResources() {
	entries, err := m.cache.Discover(mcpcache.Resources)
	if err != nil {
		logging.Warn("MCPMultiplexer", "discovering resources: %v", err)
		return
	}

	toAdd := make([]mcpserver.ServerResource, 0, len(entries))
	newURIs := make(map[string]bool, len(entries))
	for _, e := range entries {
		uri := resourceURI(e)
		newURIs[uri] = true
		toAdd = append(toAdd, mcpserver.ServerResource{
			Resource: resourceFromEntry(e, uri),
			Handler:  m.resourceHandler(e.RelativePath, uri),
		})
	}

	m.mu.Lock()
	var stale []string
	for uri := range m.resourceURIs {
		if !newURIs[uri] {
			stale = append(stale, uri)
		}
	}
	m.resourceURIs = newURIs
	m.mu.Unlock()

	for _, uri := range stale {
		m.srv.RemoveResource(uri)
	}
	if len(toAdd) > 0 {
		m.srv.AddResources(toAdd...)
	}
}

func resourceURI(e mcpcache.Entry) string {
	return "resource://" + e.RelativePath
}

func resourceFromEntry(e mcpcache.Entry, uri string) mcp.Resource {
	return mcp.Resource{
		URI:         uri,
		Name:        e.Name,
		Description: fmt.Sprintf("cached %s resource at %s", e.Format, e.RelativePath),
		MIMEType:    mimeForFormat(e.Format),
	}
}

// resourceHandler answers resources/read for a cached resource file.
func (m *Multiplexer) resourceHandler(relPath, uri string) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entry, ok, err := m.cache.Get(mcpcache.Resources, relPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("resource %q not found", uri)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: uri, MIMEType: mimeForFormat(entry.Format), Text: entry.Content},
		}, nil
	}
}

func mimeForFormat(format string) string {
	switch format {
	case "markdown":
		return "text/markdown"
	case "text":
		return "text/plain"
	case "javascript":
		return "application/javascript"
	case "typescript":
		return "application/typescript"
	case "json":
		return "application/json"
	case "yaml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

var templatePattern = regexp.MustCompile(`\{\{\s*[a-zA-Z0-9_]+\s*\}\}`)

// renderTemplate substitutes {{name}} placeholders in content with args,
// leaving any placeholder with no matching argument untouched.
func renderTemplate(content string, args map[string]string) string {
	return templatePattern.ReplaceAllStringFunc(content, func(match string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
		if v, ok := args[name]; ok {
			return v
		}
		return match
	})
}

// localHandler synthesizes a handler.Request from the MCP call arguments
// and invokes the route's handler, per spec.md §4.10 ("synthesize a
// minimal request/response pair, invoke the handler, capture its written
// body and status"). A status of 400 or above marks the result as an error.
func (m *Multiplexer) localHandler(route *api.Route) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathNames := placeholderSet(route.Schema.Path)
	queryNames := placeholderSet(route.Schema.Query)

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := telemetry.Tracer.Start(ctx, "mcp.tools.call",
			trace.WithAttributes(attribute.String("tool.name", req.Params.Name), attribute.String("tool.kind", "local")))
		defer span.End()

		args, _ := req.Params.Arguments.(map[string]interface{})

		hreq := &handler.Request{
			Method: string(route.Method),
			Path:   map[string]string{},
			Query:  map[string]string{},
			Body:   map[string]interface{}{},
		}
		for k, v := range args {
			switch {
			case pathNames[k]:
				hreq.Path[k] = fmt.Sprint(v)
			case queryNames[k]:
				hreq.Query[k] = fmt.Sprint(v)
			default:
				unflattenInto(hreq.Body, k, v)
			}
		}

		resp, err := route.Handler.Instance.Process(ctx, hreq)
		if err != nil {
			span.RecordError(err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		payload, marshalErr := json.Marshal(resp.Body)
		if marshalErr != nil {
			return mcp.NewToolResultError(marshalErr.Error()), nil
		}
		result := &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(payload))}}
		if resp.StatusCode >= 400 {
			result.IsError = true
		}
		return result, nil
	}
}

// bridgeHandler routes a call to an external bridge's tool, running the
// schema adapter (C9) on the arguments first, per spec.md §4.10.
func (m *Multiplexer) bridgeHandler(bridgeName, toolName string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := telemetry.Tracer.Start(ctx, "mcp.bridge.call_tool",
			trace.WithAttributes(attribute.String("bridge.name", bridgeName), attribute.String("tool.name", toolName)))
		defer span.End()

		client, ok := m.sv.ClientFor(bridgeName)
		if !ok {
			err := fmt.Errorf("bridge %q is not ready", bridgeName)
			span.RecordError(err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		args, _ := req.Params.Arguments.(map[string]interface{})
		adapted := m.ad.Adapt(toolName, args)

		callCtx, cancel := context.WithTimeout(ctx, BridgeCallToolTimeout)
		defer cancel()
		result, err := client.CallTool(callCtx, toolName, adapted)
		if err != nil {
			span.RecordError(err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return result, nil
	}
}

func placeholderSet(schema map[string]interface{}) map[string]bool {
	out := map[string]bool{}
	if schema == nil {
		return out
	}
	props, _ := schema["properties"].(map[string]interface{})
	for name := range props {
		out[name] = true
	}
	return out
}

// unflattenInto reverses mcptools' "parent.child" body flattening: a
// dotted key writes into nested maps under body.
func unflattenInto(body map[string]interface{}, dottedKey string, value interface{}) {
	parts := strings.Split(dottedKey, ".")
	cur := body
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// Package mcptools implements the MCP tool synthesizer (spec.md §4.6,
// component C6): it projects a route registry snapshot into a list of
// mcp.Tool descriptors, one per route, the way giantswarm-muster's
// internal/aggregator/tool_factory.go turns provider metadata into
// mcp.Tool values (convertToMCPSchema there is the direct ancestor of
// flattenBody/buildInputSchema here).
package mcptools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

// Entry pairs a synthesized tool with the route it was derived from, so a
// caller (the multiplexer, C10) can invoke the right handler for a call
// without re-deriving the name.
type Entry struct {
	Tool  mcp.Tool
	Route api.Route
}

// Synthesize projects snap into one mcp.Tool per route, per spec.md §4.6.
// Names are deterministic given the same route set; a collision (which
// can only happen if two distinct routes hash to the same name, since
// (method, urlTemplate) is already unique in the registry) is resolved by
// appending a digit suffix.
func Synthesize(snap *registry.Snapshot) []mcp.Tool {
	entries := SynthesizeEntries(snap)
	tools := make([]mcp.Tool, len(entries))
	for i, e := range entries {
		tools[i] = e.Tool
	}
	return tools
}

// SynthesizeEntries is Synthesize plus the owning route for each tool.
func SynthesizeEntries(snap *registry.Snapshot) []Entry {
	routes := snap.Valid()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].URLTemplate != routes[j].URLTemplate {
			return routes[i].URLTemplate < routes[j].URLTemplate
		}
		return routes[i].Method < routes[j].Method
	})

	used := make(map[string]bool, len(routes))
	entries := make([]Entry, 0, len(routes))
	for _, r := range routes {
		name := uniqueName(toolName(r), used)
		entries = append(entries, Entry{
			Route: r,
			Tool: mcp.Tool{
				Name:        name,
				Description: toolDescription(r),
				InputSchema: buildInputSchema(r),
			},
		})
	}
	return entries
}

// toolName derives a stable tool name from (method, urlTemplate): slashes
// become underscores and the lowercase method is suffixed, per spec.md
// §4.6 (e.g. "/users/{id}" + GET -> "api_users_{id}_get").
func toolName(r api.Route) string {
	path := strings.Trim(r.URLTemplate, "/")
	if path == "" {
		return "api_root_" + strings.ToLower(string(r.Method))
	}
	return "api_" + strings.ReplaceAll(path, "/", "_") + "_" + strings.ToLower(string(r.Method))
}

// uniqueName appends a digit suffix on collision and records name as used.
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

func toolDescription(r api.Route) string {
	if r.Schema.Description != "" && r.Schema.Description != api.DefaultDescription {
		return r.Schema.Description
	}
	return fmt.Sprintf("Execute %s %s", r.Method, r.URLTemplate)
}

// buildInputSchema merges path, query and flattened body properties into
// one object schema, per spec.md §4.6. This server's SchemaBundle has no
// distinct headers category, so that source is empty and omitted; if one
// is added later it plugs in next to body/query here.
func buildInputSchema(r api.Route) mcp.ToolInputSchema {
	properties := make(map[string]interface{})
	var required []string

	pathProps, pathRequired := objectFields(r.Schema.Path)
	for k, v := range pathProps {
		properties[k] = ensureArrayItems(v)
	}
	required = append(required, pathRequired...)

	queryProps, queryRequired := objectFields(r.Schema.Query)
	for k, v := range queryProps {
		properties[k] = ensureArrayItems(v)
	}
	required = append(required, queryRequired...)

	bodyProps, bodyRequired := flattenBody(r.Schema.Body)
	for k, v := range bodyProps {
		properties[k] = v
	}
	required = append(required, bodyRequired...)

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// flattenBody flattens nested object properties into "parent.child" keys,
// recursing only through nested objects and stopping at the first
// non-object level, per spec.md §4.6. Top-level required field names are
// returned unflattened, matching "required aggregates ... required
// body/query fields".
func flattenBody(body map[string]interface{}) (map[string]interface{}, []string) {
	props, required := objectFields(body)
	out := make(map[string]interface{}, len(props))
	for name, raw := range props {
		flattenInto(out, name, raw)
	}
	return out, required
}

func flattenInto(out map[string]interface{}, prefix string, raw interface{}) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		out[prefix] = map[string]interface{}{"type": "string"}
		return
	}
	if t, _ := m["type"].(string); t == "object" {
		if nested, _ := m["properties"].(map[string]interface{}); len(nested) > 0 {
			for k, v := range nested {
				flattenInto(out, prefix+"."+k, v)
			}
			return
		}
	}
	out[prefix] = ensureArrayItems(m)
}

// objectFields reads the properties/required pair out of a JSON-schema
// object shape ({"type":"object","properties":{...},"required":[...]}),
// mirroring internal/openapi's helper of the same name for this package's
// own SchemaBundle consumption.
func objectFields(fields map[string]interface{}) (map[string]interface{}, []string) {
	if fields == nil {
		return map[string]interface{}{}, nil
	}
	props, _ := fields["properties"].(map[string]interface{})
	if props == nil {
		props = map[string]interface{}{}
	}
	var required []string
	switch v := fields["required"].(type) {
	case []string:
		required = v
	case []interface{}:
		for _, name := range v {
			if s, ok := name.(string); ok {
				required = append(required, s)
			}
		}
	}
	return props, required
}

// ensureArrayItems guarantees an array-typed schema node carries an
// "items" key, per spec.md §4.6 ("Array types always include items").
func ensureArrayItems(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{"type": "string"}
	}
	out := make(map[string]interface{}, len(m))
	for k, val := range m {
		out[k] = val
	}
	if t, _ := out["type"].(string); t == "array" {
		if _, hasItems := out["items"]; !hasItems {
			out["items"] = map[string]interface{}{}
		}
	}
	return out
}

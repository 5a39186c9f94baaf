// Package adapter implements the schema adapter (spec.md §4.9, component
// C9): a per-tool argument rewriter inserted between the MCP multiplexer
// and a known external bridge tool, implemented as data (a map of
// rewrite functions) rather than per-call conditionals, per spec.md's
// explicit instruction.
package adapter

// RewriteFunc transforms the canonical arguments the multiplexer received
// into the shape a specific bridge tool expects.
type RewriteFunc func(args map[string]interface{}) map[string]interface{}

// Adapter is a lookup table keyed by tool name.
type Adapter struct {
	rewrites map[string]RewriteFunc
}

// New builds an Adapter pre-loaded with the well-known rewrites. Additional
// entries can be registered at runtime via Register, so a bridge manifest
// could in principle extend the table without a code change.
func New() *Adapter {
	a := &Adapter{rewrites: make(map[string]RewriteFunc)}
	for name, fn := range wellKnownRewrites {
		a.rewrites[name] = fn
	}
	return a
}

// Register adds or replaces the rewrite for a tool name.
func (a *Adapter) Register(toolName string, fn RewriteFunc) {
	a.rewrites[toolName] = fn
}

// Adapt rewrites args for toolName if a rewrite is registered; otherwise
// args pass through unchanged, per spec.md §4.9 ("Unknown tool names pass
// through unchanged").
func (a *Adapter) Adapt(toolName string, args map[string]interface{}) map[string]interface{} {
	if fn, ok := a.rewrites[toolName]; ok {
		return fn(args)
	}
	return args
}

// renameKeys is a small helper most rewrite functions are built from: copy
// every key in args to its mapped name (or itself if unmapped), dropping
// the old key.
func renameKeys(args map[string]interface{}, rename map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if newKey, ok := rename[k]; ok {
			out[newKey] = v
			continue
		}
		out[k] = v
	}
	return out
}

// wellKnownRewrites holds the rewrite table for bridge tools whose
// argument names diverge from this server's canonical names. spec.md §6's
// scenario S6 is the click entry below: {element_id, doubleClick} ->
// {uid, dblClick}.
var wellKnownRewrites = map[string]RewriteFunc{
	"click": func(args map[string]interface{}) map[string]interface{} {
		return renameKeys(args, map[string]string{
			"element_id":  "uid",
			"doubleClick": "dblClick",
		})
	},
	"type": func(args map[string]interface{}) map[string]interface{} {
		return renameKeys(args, map[string]string{
			"element_id": "uid",
			"text":       "value",
		})
	},
	"navigate": func(args map[string]interface{}) map[string]interface{} {
		return renameKeys(args, map[string]string{
			"url": "target",
		})
	},
}

package discovery

import (
	"context"
	"fmt"
	"plugin"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
)

// Recognized exported symbols, mirroring the three export shapes of
// spec.md §4.2 step 3:
//
//	(i)   "Handler"    — a package-level value implementing handler.Handler ("object")
//	(ii)  "NewHandler" — a zero-arg factory func() handler.Handler ("class")
//	(iii) "Handle"     — a plain func(ctx, *Request) (*Response, error) ("function")
const (
	symbolObjectHandler = "Handler"
	symbolClassFactory  = "NewHandler"
	symbolPlainFunc     = "Handle"
)

// PluginLoader opens a compiled handler plugin (a .so built from a handler
// .go source file) and normalizes whichever of the three export shapes it
// finds into a single handler.Handler, per the sum-type strategy in
// spec.md §9 ("Duck-typed handler exports").
type PluginLoader struct{}

// Load opens path and returns the normalized handler plus its capability
// set. Any shape other than the three recognized symbols is a loader error
// (spec.md §4.2 step 3, "Any other shape → loader error").
func (PluginLoader) Load(path string) (handler.Handler, api.Capabilities, error) {
	plug, err := plugin.Open(path)
	if err != nil {
		return nil, api.Capabilities{}, fmt.Errorf("opening plugin: %w", err)
	}
	return normalize(plug, path)
}

func normalize(plug *plugin.Plugin, path string) (handler.Handler, api.Capabilities, error) {
	if sym, err := plug.Lookup(symbolObjectHandler); err == nil {
		h, ok := sym.(handler.Handler)
		if !ok {
			if ptr, ok2 := sym.(*handler.Handler); ok2 && ptr != nil {
				h = *ptr
				ok = true
			}
		}
		if !ok {
			return nil, api.Capabilities{}, fmt.Errorf("%s: exported Handler does not implement handler.Handler", path)
		}
		return h, api.Capabilities{HasProcess: true}, nil
	}

	if sym, err := plug.Lookup(symbolClassFactory); err == nil {
		factory, ok := sym.(handler.Factory)
		if !ok {
			if fn, ok2 := sym.(func() handler.Handler); ok2 {
				factory = fn
				ok = true
			}
		}
		if !ok {
			return nil, api.Capabilities{}, fmt.Errorf("%s: exported NewHandler is not a func() handler.Handler", path)
		}
		instance := factory()
		if instance == nil {
			return nil, api.Capabilities{}, fmt.Errorf("%s: NewHandler() returned nil", path)
		}
		return instance, api.Capabilities{IsClass: true}, nil
	}

	if sym, err := plug.Lookup(symbolPlainFunc); err == nil {
		fn, ok := sym.(func(ctx context.Context, req *handler.Request) (*handler.Response, error))
		if !ok {
			return nil, api.Capabilities{}, fmt.Errorf("%s: exported Handle has the wrong signature", path)
		}
		return handler.HandlerFunc(fn), api.Capabilities{IsPlainFunction: true}, nil
	}

	return nil, api.Capabilities{}, fmt.Errorf("%s: no recognized export (Handler, NewHandler, or Handle)", path)
}

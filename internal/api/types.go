package api

import "github.com/easynet-world/easy-mcp-server/internal/handler"

// Method is an HTTP verb a Route may be bound to.
type Method string

// The HTTP methods the discovery engine recognizes from a handler file's
// stem, per spec.md §4.2 item 2.
const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ValidMethods lists every method token the discovery engine accepts.
var ValidMethods = map[string]Method{
	"get":     MethodGet,
	"post":    MethodPost,
	"put":     MethodPut,
	"patch":   MethodPatch,
	"delete":  MethodDelete,
	"head":    MethodHead,
	"options": MethodOptions,
}

// BodyAllowed reports whether requestBody synthesis applies to m, per
// spec.md §4.5 ("requestBody only for methods that allow bodies").
func (m Method) BodyAllowed() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// Capabilities describes the export shape a handler file was loaded as.
// Exactly one field is true; it never changes after load.
type Capabilities struct {
	HasProcess     bool
	IsClass        bool
	IsPlainFunction bool
}

// HandlerRef is the normalized, callable form of a discovered handler file,
// reference-counted by the registry entry that owns it. It is produced once
// per load by internal/discovery and never mutated afterward.
type HandlerRef struct {
	Instance     handler.Handler
	Capabilities Capabilities
}

// SchemaBundle is the merged description of one route's input/output
// contract, assembled by the annotation & schema extractor (spec.md §4.1).
type SchemaBundle struct {
	Body        map[string]interface{}
	Query       map[string]interface{}
	Path        map[string]interface{}
	Response    map[string]interface{}
	Errors      map[int]map[string]interface{}
	Summary     string
	Description string
	Tags        []string
}

// DefaultSummary, DefaultDescription and DefaultTags are applied when a
// handler declares no annotations at all, per spec.md §4.1.
const (
	DefaultSummary     = "API endpoint summary"
	DefaultDescription = "API endpoint description"
)

// DefaultTags returns a fresh default tag slice (callers must not share the
// backing array across routes).
func DefaultTags() []string { return []string{"api"} }

// Route is one entry in the route registry: a (method, urlTemplate) pair
// bound to a handler and its schema bundle. urlTemplate uses {name}
// placeholders internally per spec.md §3.
type Route struct {
	Method      Method
	URLTemplate string
	FilePath    string
	Handler     HandlerRef
	Schema      SchemaBundle
}

// Key returns the registry's unique key for this route.
func (r Route) Key() RouteKey {
	return RouteKey{Method: r.Method, URLTemplate: r.URLTemplate}
}

// RouteKey is the registry's map key: (method, urlTemplate) is unique across
// the route table (spec.md §3 invariant).
type RouteKey struct {
	Method      Method
	URLTemplate string
}

// MiddlewareLayer tracks the handler references one middleware.* file
// installed on a URL prefix, so a later file change can remove exactly the
// layers it added (spec.md §3, §4.4 step 2).
type MiddlewareLayer struct {
	FilePath    string
	URLPrefix   string
	HandlerList []handler.Handler
}

// LoaderErrorType categorizes a discovery failure for the /health surface
// (spec.md §4.2 "Failure semantics").
type LoaderErrorType string

const (
	ErrMissingDependency LoaderErrorType = "missing_dependency"
	ErrMissingModule     LoaderErrorType = "missing_module"
	ErrInvalidConstructor LoaderErrorType = "invalid_constructor"
	ErrPropertyError     LoaderErrorType = "property_error"
	ErrSyntax            LoaderErrorType = "syntax"
	ErrUnknown           LoaderErrorType = "unknown"
)

// LoaderError is one recorded discovery failure. Loader errors are data, not
// faults (spec.md §4.2): they never abort discovery of other files.
type LoaderError struct {
	FilePath string
	Type     LoaderErrorType
	Message  string
}

// Package openapi implements the OpenAPI synthesizer (spec.md §4.5,
// component C5): it projects a route registry snapshot into an OpenAPI
// 3.0.0 document. No library in the retrieved example repos models an
// OpenAPI document (there is no swagger/openapi dependency anywhere in
// the pack), so this package builds the document as plain structs over
// encoding/json, the way giantswarm-muster builds its own wire types
// (internal/api/types.go in that repo) rather than importing a generic
// JSON-object library for a fixed, well-known shape.
package openapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/registry"
)

// Document is the root OpenAPI object, per spec.md §4.5.
type Document struct {
	OpenAPI    string                 `json:"openapi"`
	Info       Info                   `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]PathItem    `json:"paths"`
	Components Components             `json:"components"`
}

// Info carries the document's identity.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Server is one entry in Document.Servers.
type Server struct {
	URL string `json:"url"`
}

// PathItem maps HTTP method (lowercased) to its Operation.
type PathItem map[string]Operation

// Operation describes one (method, path) pair.
type Operation struct {
	OperationID string                 `json:"operationId"`
	Summary     string                 `json:"summary,omitempty"`
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Parameters  []Parameter            `json:"parameters,omitempty"`
	RequestBody *RequestBody           `json:"requestBody,omitempty"`
	Responses   map[string]Response    `json:"responses"`
}

// Parameter is a path or query parameter.
type Parameter struct {
	Name     string                 `json:"name"`
	In       string                 `json:"in"`
	Required bool                   `json:"required"`
	Schema   map[string]interface{} `json:"schema"`
}

// RequestBody is the operation's body contract.
type RequestBody struct {
	Required bool                             `json:"required"`
	Content  map[string]MediaTypeObject        `json:"content"`
}

// MediaTypeObject wraps a schema under a media type key ("application/json").
type MediaTypeObject struct {
	Schema map[string]interface{} `json:"schema"`
}

// Response is one entry under Operation.Responses.
type Response struct {
	Description string                     `json:"description"`
	Content     map[string]MediaTypeObject `json:"content,omitempty"`
}

// Components holds the document's shared schemas.
type Components struct {
	Schemas map[string]map[string]interface{} `json:"schemas"`
}

// errorSchema and successSchema are the always-present shared schemas,
// per spec.md §4.5 ("components.schemas always contains at least Error
// and Success objects").
var errorSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"error":   map[string]interface{}{"type": "string"},
		"message": map[string]interface{}{"type": "string"},
	},
	"required": []string{"error"},
}

var successSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"success": map[string]interface{}{"type": "boolean"},
		"data":    map[string]interface{}{},
	},
}

// pathParamPattern extracts {name} placeholders from a URL template.
var pathParamPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Synthesize projects snap into an OpenAPI 3.0.0 document, per spec.md
// §4.5. title, version and baseURL populate info and servers[0].
func Synthesize(snap *registry.Snapshot, title, version, baseURL string) *Document {
	doc := &Document{
		OpenAPI: "3.0.0",
		Info:    Info{Title: title, Version: version},
		Servers: []Server{{URL: baseURL}},
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]map[string]interface{}{
				"Error":   errorSchema,
				"Success": successSchema,
			},
		},
	}

	routes := snap.Valid()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].URLTemplate != routes[j].URLTemplate {
			return routes[i].URLTemplate < routes[j].URLTemplate
		}
		return routes[i].Method < routes[j].Method
	})

	usedIDs := make(map[string]bool)
	for _, r := range routes {
		op := buildOperation(r, usedIDs)
		item, ok := doc.Paths[r.URLTemplate]
		if !ok {
			item = PathItem{}
		}
		item[strings.ToLower(string(r.Method))] = op
		doc.Paths[r.URLTemplate] = item
	}
	return doc
}

// buildOperation converts one route into an Operation, ensuring a
// document-unique operationId per spec.md §4.5 ("collisions are resolved
// by appending _methodPath").
func buildOperation(r api.Route, usedIDs map[string]bool) Operation {
	id := operationID(r)
	if usedIDs[id] {
		id = fmt.Sprintf("%s_%s%s", id, strings.ToLower(string(r.Method)), sanitizeForID(r.URLTemplate))
	}
	usedIDs[id] = true

	op := Operation{
		OperationID: id,
		Summary:     r.Schema.Summary,
		Description: r.Schema.Description,
		Tags:        r.Schema.Tags,
		Responses:   buildResponses(r),
	}
	if op.Summary == "" {
		op.Summary = api.DefaultSummary
	}
	if op.Description == "" {
		op.Description = api.DefaultDescription
	}
	if len(op.Tags) == 0 {
		op.Tags = api.DefaultTags()
	}

	op.Parameters = buildParameters(r)
	if r.Method.BodyAllowed() && len(r.Schema.Body) > 0 {
		op.RequestBody = buildRequestBody(r.Schema.Body)
	}
	return op
}

// operationID derives a stable operationId from (method, urlTemplate):
// drop placeholder braces, replace separators with underscores, lowercase
// the method suffix ("/users/{id}" + GET -> "users_id_get"). Unlike C6 tool
// names, operationIds carry no "api_" prefix and no braces.
func operationID(r api.Route) string {
	return fmt.Sprintf("%s_%s", sanitizeForID(r.URLTemplate), strings.ToLower(string(r.Method)))
}

func sanitizeForID(urlTemplate string) string {
	s := strings.Trim(urlTemplate, "/")
	if s == "" {
		s = "root"
	}
	s = strings.NewReplacer("/", "_", "{", "", "}", "").Replace(s)
	return s
}

// buildParameters emits one Parameter per path placeholder (always
// required) followed by one per query field, per spec.md §4.5.
func buildParameters(r api.Route) []Parameter {
	pathProps, _ := objectFields(r.Schema.Path)
	var params []Parameter
	for _, name := range pathParamPattern.FindAllStringSubmatch(r.URLTemplate, -1) {
		var schema interface{} = map[string]interface{}{"type": "string"}
		if s, ok := pathProps[name[1]]; ok {
			schema = s
		}
		params = append(params, Parameter{Name: name[1], In: "path", Required: true, Schema: ensureArrayItems(schema)})
	}

	queryProps, queryRequired := objectFields(r.Schema.Query)
	requiredQuery := toSet(queryRequired)
	names := make([]string, 0, len(queryProps))
	for name := range queryProps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params = append(params, Parameter{
			Name:     name,
			In:       "query",
			Required: requiredQuery[name],
			Schema:   ensureArrayItems(queryProps[name]),
		})
	}
	return params
}

// buildRequestBody wraps the route's body schema, marking required true
// when the schema declares any required field, per spec.md §4.5.
func buildRequestBody(body map[string]interface{}) *RequestBody {
	schema := normalizeObjectSchema(body)
	_, req := objectFields(schema)
	return &RequestBody{
		Required: len(req) > 0,
		Content: map[string]MediaTypeObject{
			"application/json": {Schema: schema},
		},
	}
}

// objectFields reads the properties/required pair out of a JSON-schema
// object shape as produced by internal/schema.Extract ({"type":"object",
// "properties": {...}, "required": [...]}).
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

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// buildResponses assembles the responses object: a 200 from the response
// schema when present, a default error $ref, and any explicit numeric
// error responses from the bundle, per spec.md §4.5.
func buildResponses(r api.Route) map[string]Response {
	responses := make(map[string]Response)
	if len(r.Schema.Response) > 0 {
		responses["200"] = Response{
			Description: "Successful response",
			Content: map[string]MediaTypeObject{
				"application/json": {Schema: normalizeObjectSchema(r.Schema.Response)},
			},
		}
	} else {
		responses["200"] = Response{
			Description: "Successful response",
			Content: map[string]MediaTypeObject{
				"application/json": {Schema: map[string]interface{}{"$ref": "#/components/schemas/Success"}},
			},
		}
	}

	for status, schema := range r.Schema.Errors {
		responses[fmt.Sprintf("%d", status)] = Response{
			Description: "Error response",
			Content: map[string]MediaTypeObject{
				"application/json": {Schema: normalizeObjectSchema(schema)},
			},
		}
	}

	responses["default"] = Response{
		Description: "Unexpected error",
		Content: map[string]MediaTypeObject{
			"application/json": {Schema: map[string]interface{}{"$ref": "#/components/schemas/Error"}},
		},
	}
	return responses
}

// normalizeObjectSchema copies a bundle field map into a JSON Schema
// object shape and recursively ensures every array carries items, per
// spec.md §4.5 ("Arrays in any emitted schema must always carry an items
// field").
func normalizeObjectSchema(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return map[string]interface{}{"type": "object"}
	}
	if _, hasType := fields["type"]; hasType {
		return ensureArrayItems(fields)
	}

	props := make(map[string]interface{}, len(fields))
	var required []string
	for k, v := range fields {
		if k == "required" {
			continue
		}
		props[k] = ensureArrayItems(v)
	}
	if req, ok := fields["required"]; ok {
		switch v := req.(type) {
		case []string:
			required = v
		case []interface{}:
			for _, name := range v {
				if s, ok := name.(string); ok {
					required = append(required, s)
				}
			}
		}
	}

	out := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// ensureArrayItems walks a schema value and guarantees every "array" typed
// node carries an "items" key, synthesizing {} when absent.
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
		} else if items, ok := out["items"].(map[string]interface{}); ok {
			out["items"] = ensureArrayItems(items)
		}
	}
	if props, ok := out["properties"].(map[string]interface{}); ok {
		normalized := make(map[string]interface{}, len(props))
		for k, val := range props {
			normalized[k] = ensureArrayItems(val)
		}
		out["properties"] = normalized
	}
	return out
}

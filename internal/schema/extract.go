package schema

import (
	"strings"

	"github.com/easynet-world/easy-mcp-server/internal/api"
	"github.com/easynet-world/easy-mcp-server/internal/handler"
	"github.com/easynet-world/easy-mcp-server/pkg/logging"
)

// Extract produces a SchemaBundle for one handler file, merging in
// precedence order per spec.md §4.1:
//
//	(a) an explicit schema attached to the handler instance (handler.SchemaProvider)
//	(b) a co-located typed Request/Response shape: not read; Extract has
//	    no step for it
//	(c) doc-comment annotations parsed by ParseAnnotations
//
// Defaults apply when everything above is silent. Path placeholders in
// urlTemplate are always added to the Path schema as required strings, and
// always win over a same-named Query field (spec.md §4.1).
func Extract(filePath string, src []byte, urlTemplate string, instance handler.Handler) (api.SchemaBundle, []string) {
	annotations, warnings := ParseAnnotations(filePath, src)

	bundle := api.SchemaBundle{
		Summary:     api.DefaultSummary,
		Description: api.DefaultDescription,
		Tags:        api.DefaultTags(),
	}

	var provided handler.Bundle
	if provider, ok := instance.(handler.SchemaProvider); ok {
		provided = provider.Schema()
		if provided.Body != nil {
			bundle.Body = provided.Body
		}
		if provided.Query != nil {
			bundle.Query = provided.Query
		}
		if provided.Response != nil {
			bundle.Response = provided.Response
		}
		if provided.Errors != nil {
			bundle.Errors = provided.Errors
		}
		if provided.Summary != "" {
			bundle.Summary = provided.Summary
		}
		if provided.Description != "" {
			bundle.Description = provided.Description
		}
		if len(provided.Tags) > 0 {
			bundle.Tags = provided.Tags
		}
	}

	if annotations.Description != "" && provided.Description == "" {
		bundle.Description = annotations.Description
	}
	if annotations.Summary != "" && provided.Summary == "" {
		bundle.Summary = annotations.Summary
	}
	if len(annotations.Tags) > 0 && len(provided.Tags) == 0 {
		bundle.Tags = annotations.Tags
	}
	if annotations.ResponseSchema != nil && bundle.Response == nil {
		bundle.Response = annotations.ResponseSchema
	}

	if len(annotations.Params) > 0 {
		if bundle.Query == nil {
			bundle.Query = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		props, _ := bundle.Query["properties"].(map[string]interface{})
		if props == nil {
			props = map[string]interface{}{}
			bundle.Query["properties"] = props
		}
		for _, p := range annotations.Params {
			if _, declared := props[p.Name]; declared && provided.Query != nil {
				continue
			}
			props[p.Name] = map[string]interface{}{"type": p.Type, "description": p.Description}
		}
	}

	applyPathParameters(&bundle, urlTemplate)

	if len(warnings) > 0 {
		for _, w := range warnings {
			logging.Warn("SchemaExtractor", "%s: %s", filePath, w)
		}
	}

	return bundle, warnings
}

// applyPathParameters injects every {name} placeholder from urlTemplate into
// the Path schema as a required string, and drops any same-named Query
// field, per spec.md §4.1.
func applyPathParameters(bundle *api.SchemaBundle, urlTemplate string) {
	names := PlaceholderNames(urlTemplate)
	if len(names) == 0 {
		return
	}

	props := map[string]interface{}{}
	required := make([]string, 0, len(names))
	for _, name := range names {
		props[name] = map[string]interface{}{"type": "string"}
		required = append(required, name)

		if bundle.Query != nil {
			if qprops, ok := bundle.Query["properties"].(map[string]interface{}); ok {
				delete(qprops, name)
			}
		}
	}

	bundle.Path = map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// PlaceholderNames returns every {name} placeholder in a urlTemplate, in
// order of first appearance.
func PlaceholderNames(urlTemplate string) []string {
	var names []string
	seen := map[string]bool{}
	rest := urlTemplate
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		name := rest[start+1 : start+end]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		rest = rest[start+end+1:]
	}
	return names
}

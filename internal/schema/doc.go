// Package schema implements the annotation & schema extractor (spec.md
// §4.1, component C1): for every discovered handler it produces a
// SchemaBundle by merging an explicit handler-declared schema, a co-located
// typed Request/Response shape, and doc-comment annotations, in that order
// of precedence.
package schema

// Package discovery implements the discovery engine (spec.md §4.2,
// component C2): it walks a handler root, maps each file to a (method,
// urlTemplate) pair, loads the handler, normalizes its export shape to the
// handler.Handler contract, attaches a schema bundle via internal/schema,
// and upserts the result into the route registry.
//
// Go has no runtime code-loading mechanism comparable to a dynamic module
// system other than the standard library's plugin package, so that is what
// HandlerRoot's default implementation uses (see shape.go). This mirrors
// the spec's "duck-typed handler exports" design note (spec.md §9): plugin
// symbols are normalized to the same ObjectHandler/ClassHandler/FuncHandler
// sum type the note describes.
package discovery

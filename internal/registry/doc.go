// Package registry implements the route registry (spec.md §4.3, component
// C3): the authoritative (method, urlTemplate) -> Route map plus a loader
// error list, in which an incremental Apply replaces the errors of the files
// it touches. It is single-writer, multi-reader: the
// discovery engine and hot-reload watcher publish new Snapshot values under
// an atomic pointer; every reader (OpenAPI synthesizer, MCP tool
// synthesizer, HTTP surface, MCP multiplexer) takes one Snapshot and reads
// it without further locking, per the "arena-style immutable registry
// snapshot" design note in spec.md §9.
package registry

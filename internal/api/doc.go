// Package api holds the domain types shared across the discovery engine,
// route registry, OpenAPI synthesizer, MCP tool synthesizer, and bridge
// supervisor. Types defined here have no behavior of their own beyond small
// invariant helpers; the packages that own them (registry, bridge) are the
// only ones allowed to mutate them.
package api

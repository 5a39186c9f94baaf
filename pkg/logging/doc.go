// Package logging provides the structured logging subsystem shared by every
// component of easy-mcp-server. It wraps log/slog with a subsystem tag and
// adds an Audit helper for structured audit records.
package logging

// Package config loads the environment-driven server configuration
// documented in spec.md §6, and provides small validation helpers
// (required fields, allowed values, entity names).
package config

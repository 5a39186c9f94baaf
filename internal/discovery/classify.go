package discovery

import (
	"strings"

	"github.com/easynet-world/easy-mcp-server/internal/api"
)

// classifyLoadError maps a raw load error to one of the categorical loader
// error types the /health surface exposes, per spec.md §4.2 ("Failure
// semantics").
func classifyLoadError(err error) api.LoaderErrorType {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such file") || strings.Contains(msg, "does not exist"):
		return api.ErrMissingModule
	case strings.Contains(msg, "no recognized export"):
		return api.ErrInvalidConstructor
	case strings.Contains(msg, "returned nil") || strings.Contains(msg, "wrong signature") || strings.Contains(msg, "does not implement"):
		return api.ErrInvalidConstructor
	case strings.Contains(msg, "missing symbol") || strings.Contains(msg, "symbol not found"):
		return api.ErrMissingDependency
	case strings.Contains(msg, "failed to parse"):
		return api.ErrSyntax
	case strings.Contains(msg, "panic"):
		return api.ErrPropertyError
	default:
		return api.ErrUnknown
	}
}

package discovery

import (
	"path/filepath"
	"strings"

	"github.com/easynet-world/easy-mcp-server/internal/api"
)

// testExclusionGlobs are the patterns discovery skips entirely, per
// spec.md §4.2 step 1. Matching is done with doublestar so `**` behaves
// the way the spec's `__tests__/**` example implies.
var testExclusionGlobs = []string{
	"*.test.*",
	"*.spec.*",
	"__tests__/**",
}

// middlewareStem is the reserved stem discovery treats specially
// (spec.md §4.2 step 1): "middleware.go" compiles to "middleware.so".
const middlewareStem = "middleware"

// urlTemplateForPath converts a handler file's path, relative to the
// discovery root, into a {name}-templated URL, per spec.md §4.2 step 2:
// directory segments wrapped in [name] become {name}; the file's own stem
// (the method token) is dropped from the template.
//
// Example: "users/[id]/get.so" (relative, root-stripped) -> "/users/{id}".
func urlTemplateForPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." {
		return "/"
	}

	segments := strings.Split(dir, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			segments[i] = "{" + seg[1:len(seg)-1] + "}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// methodForStem maps a handler file's stem (without extension) to an HTTP
// method, per spec.md §4.2 step 2. ok is false for unrecognized stems,
// which the engine records as a loader error and skips (step 2).
func methodForStem(stem string) (api.Method, bool) {
	m, ok := api.ValidMethods[strings.ToLower(stem)]
	return m, ok
}

// isMiddlewareFile reports whether a file stem is the reserved
// "middleware" name, per spec.md §4.2 step 1.
func isMiddlewareFile(stem string) bool {
	return strings.EqualFold(stem, middlewareStem)
}

// stem returns a file name without its extension, e.g. "get.so" -> "get".
func stem(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext)
}

// middlewarePrefix computes the URL prefix a middleware.* file installs on,
// per spec.md §4.2 step 6: the directory the file lives in.
func middlewarePrefix(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." {
		return "/"
	}
	segments := strings.Split(dir, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			segments[i] = "{" + seg[1:len(seg)-1] + "}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

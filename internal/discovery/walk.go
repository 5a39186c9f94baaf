package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// handlerFile is one candidate discovered by walk: a compiled handler
// plugin (.so) with its stem-derived method token and its relative path,
// plus the adjacent .go source (if any) used for annotation extraction.
type handlerFile struct {
	AbsPath    string // the .so file
	RelPath    string // relative to the discovery root
	Stem       string // file name without extension, e.g. "get"
	SourcePath string // sibling .go file, empty if absent
}

// walkRoot recursively finds every loadable handler plugin under root,
// skipping files that match the test-exclusion globs (spec.md §4.2 step 1).
func walkRoot(root string) ([]handlerFile, error) {
	var out []handlerFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".so" {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if isExcluded(rel) {
			return nil
		}

		base := filepath.Base(path)
		fileStem := stem(base)
		sourcePath := ""
		candidate := strings.TrimSuffix(path, ".so") + ".go"
		if _, statErr := os.Stat(candidate); statErr == nil {
			sourcePath = candidate
		}

		out = append(out, handlerFile{
			AbsPath:    path,
			RelPath:    rel,
			Stem:       fileStem,
			SourcePath: sourcePath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// isExcluded reports whether rel matches one of the test-exclusion globs.
func isExcluded(rel string) bool {
	for _, pattern := range testExclusionGlobs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// Also match against just the base name for patterns like
		// "*.test.*" so "deep/nested/get.test.so" is excluded too.
		if ok, _ := doublestar.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

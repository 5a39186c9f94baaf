package discovery

import (
	"os"
	"path/filepath"
	"strings"
)

func relTo(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func lastSegment(path string) string {
	return filepath.Base(path)
}

func siblingSource(soPath string) string {
	candidate := strings.TrimSuffix(soPath, filepath.Ext(soPath)) + ".go"
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

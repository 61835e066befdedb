package tools

import (
	"os"
	"path/filepath"
	"strings"
)

// resolvePath expands a leading ~ and makes relative paths absolute
// against workDir.
func resolvePath(path, workDir string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	return filepath.Clean(path)
}

// isWithin reports whether path stays inside root after cleaning. Used to
// reject search-result paths that escape the search root.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

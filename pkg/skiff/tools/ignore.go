package tools

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// agentIgnoreFile is the runtime's own ignore file, honored alongside
// .gitignore where tools opt in.
const agentIgnoreFile = ".geminiignore"

// defaultExcludes are directory/file name patterns skipped by search,
// glob, and bulk-read tools unless explicitly disabled.
var defaultExcludes = []string{
	"node_modules",
	".git",
	"__pycache__",
	"venv",
	".venv",
	"dist",
	"build",
	".tox",
	".eggs",
	"*.egg-info",
}

// loadIgnorePatterns reads non-comment lines from dir's .gitignore and the
// agent ignore file, as requested. Patterns are name globs matched against
// individual path components; trailing slashes are dropped.
func loadIgnorePatterns(dir string, gitIgnore, agentIgnore bool) []string {
	var patterns []string
	if gitIgnore {
		patterns = append(patterns, readIgnoreFile(filepath.Join(dir, ".gitignore"))...)
	}
	if agentIgnore {
		patterns = append(patterns, readIgnoreFile(filepath.Join(dir, agentIgnoreFile))...)
	}
	return patterns
}

func readIgnoreFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return patterns
}

// matchesName reports whether a single file or directory name matches any
// pattern (glob or literal).
func matchesName(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// pathExcluded reports whether any component of relPath matches any
// pattern. This mirrors how VCS tools skip whole subtrees by directory
// name.
func pathExcluded(relPath string, patterns []string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if matchesName(part, patterns) {
			return true
		}
	}
	return false
}

package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// recencyWindow: files modified within this window sort first, newest to
// oldest; the rest follow alphabetically.
const recencyWindow = 24 * time.Hour

func registerGlobTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "glob",
		Description: "Finds files matching a glob pattern (e.g. \"**/*.go\", \"docs/*.md\"), " +
			"returning absolute paths sorted by modification time (newest first). " +
			"Ideal for locating files by name or path structure.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern to match against",
				},
				"dir_path": map[string]any{
					"type":        "string",
					"description": "Directory to search in (defaults to the working directory)",
				},
				"case_sensitive": map[string]any{
					"type":        "boolean",
					"description": "Whether matching is case-sensitive (default false)",
				},
				"respect_git_ignore": map[string]any{
					"type":        "boolean",
					"description": "Whether to honor .gitignore patterns (default true)",
				},
				"respect_gemini_ignore": map[string]any{
					"type":        "boolean",
					"description": "Whether to honor the agent ignore file (default true)",
				},
			},
			"required": []string{"pattern"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return globFiles(o, args)
		},
	})
}

func globFiles(o Options, args map[string]any) Result {
	pattern := strings.TrimSpace(strArg(args, "pattern"))
	if pattern == "" {
		return ErrorResult(ErrInvalidPattern, "The 'pattern' parameter cannot be empty.")
	}

	searchDir := o.WorkDir
	if dp := strArg(args, "dir_path"); dp != "" {
		searchDir = resolvePath(dp, o.WorkDir)
	}
	info, err := os.Stat(searchDir)
	if err != nil {
		return ErrorResult(ErrDirectoryNotFound, "Search path does not exist: %s", searchDir)
	}
	if !info.IsDir() {
		return ErrorResult(ErrNotADirectory, "Search path is not a directory: %s", searchDir)
	}

	caseSensitive := boolArg(args, "case_sensitive", false)
	excludes := append([]string{}, defaultExcludes...)
	excludes = append(excludes, loadIgnorePatterns(searchDir,
		boolArg(args, "respect_git_ignore", true),
		boolArg(args, "respect_gemini_ignore", true))...)

	// Patterns without a leading "**/" match anywhere below the root.
	matchPattern := pattern
	if !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "/") {
		matchPattern = "**/" + pattern
	}

	type entry struct {
		path  string
		mtime time.Time
	}
	var entries []entry
	ignoredCount := 0

	filepath.WalkDir(searchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(searchDir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if matchesName(d.Name(), excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if !globMatch(matchPattern, filepath.ToSlash(rel), caseSensitive) {
			return nil
		}
		if pathExcluded(rel, excludes) {
			ignoredCount++
			return nil
		}
		var mtime time.Time
		if fi, err := d.Info(); err == nil {
			mtime = fi.ModTime()
		}
		entries = append(entries, entry{path: path, mtime: mtime})
		return nil
	})

	// Recent files first by descending mtime, the rest alphabetically.
	now := time.Now()
	sort.SliceStable(entries, func(i, j int) bool {
		iRecent := now.Sub(entries[i].mtime) < recencyWindow
		jRecent := now.Sub(entries[j].mtime) < recencyWindow
		if iRecent != jRecent {
			return iRecent
		}
		if iRecent {
			return entries[i].mtime.After(entries[j].mtime)
		}
		return entries[i].path < entries[j].path
	})

	if len(entries) == 0 {
		msg := fmt.Sprintf("No files found matching pattern %q within %s", pattern, searchDir)
		if ignoredCount > 0 {
			msg += fmt.Sprintf(" (%d files were ignored)", ignoredCount)
		}
		return DualResult(msg, "No files found")
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	msg := fmt.Sprintf("Found %d file(s) matching %q within %s", len(paths), pattern, searchDir)
	if ignoredCount > 0 {
		msg += fmt.Sprintf(" (%d additional files were ignored)", ignoredCount)
	}
	msg += ", sorted by modification time (newest first):\n" + strings.Join(paths, "\n")
	return DualResult(msg, fmt.Sprintf("Found %d matching file(s)", len(paths)))
}

// globMatch matches a slash-separated relative path against a pattern
// where "**" spans any number of path segments.
func globMatch(pattern, rel string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		rel = strings.ToLower(rel)
	}
	return segmentsMatch(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func segmentsMatch(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		for skip := 0; skip <= len(parts); skip++ {
			if segmentsMatch(pat[1:], parts[skip:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if ok, err := filepath.Match(pat[0], parts[0]); err != nil || !ok {
		return false
	}
	return segmentsMatch(pat[1:], parts[1:])
}

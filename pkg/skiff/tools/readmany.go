package tools

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	readManyMaxFileSize  = 1024 * 1024      // per file
	readManyMaxTotalSize = 10 * 1024 * 1024 // aggregate
)

// readManyDefaultExcludes extends the shared exclusion set with
// glob-shaped patterns over whole relative paths.
var readManyDefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"__pycache__/**",
	"*.pyc",
	"venv/**",
	".venv/**",
	"dist/**",
	"build/**",
	".tox/**",
	"*.egg-info/**",
}

func registerReadManyFilesTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "read_many_files",
		Description: "Reads multiple text files matching glob patterns and concatenates " +
			"their contents with per-file separators. Useful for surveying related " +
			"files at once. Binary files and files over 1 MiB are skipped.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"include": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Glob patterns or file paths to include",
				},
				"exclude": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Patterns to exclude",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Whether ** patterns recurse (default true)",
				},
				"useDefaultExcludes": map[string]any{
					"type":        "boolean",
					"description": "Whether to apply the default exclusion set (default true)",
				},
			},
			"required": []string{"include"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return readManyFiles(o, args)
		},
	})
}

type skippedFile struct {
	path   string
	reason string
}

func readManyFiles(o Options, args map[string]any) Result {
	include := strSliceArg(args, "include")
	if len(include) == 0 {
		return ErrorResult(ErrInvalidInput, "'include' must be a non-empty array of patterns.")
	}

	excludes := []string{}
	if boolArg(args, "useDefaultExcludes", true) {
		excludes = append(excludes, readManyDefaultExcludes...)
	}
	excludes = append(excludes, strSliceArg(args, "exclude")...)
	recursive := boolArg(args, "recursive", true)

	// Resolve the union of matching regular files.
	fileSet := make(map[string]bool)
	for _, pattern := range include {
		pattern = strings.ReplaceAll(pattern, "\\", "/")
		resolved := resolvePath(pattern, o.WorkDir)
		if info, err := os.Stat(resolved); err == nil && info.Mode().IsRegular() {
			fileSet[resolved] = true
			continue
		}
		for _, match := range expandPattern(pattern, o.WorkDir, recursive) {
			fileSet[match] = true
		}
	}

	allFiles := make([]string, 0, len(fileSet))
	for f := range fileSet {
		allFiles = append(allFiles, f)
	}
	sort.Strings(allFiles)

	var skipped []skippedFile
	var filtered []string
	for _, path := range allFiles {
		rel := relativeTo(path, o.WorkDir)
		if readManyExcluded(rel, excludes) {
			skipped = append(skipped, skippedFile{path: rel, reason: "excluded by pattern"})
			continue
		}
		filtered = append(filtered, path)
	}
	if len(filtered) == 0 {
		return DualResult(
			fmt.Sprintf("No files found matching the patterns: %s", strings.Join(include, ", ")),
			"No files found")
	}

	var contents strings.Builder
	totalSize := 0
	var processed []string
	for _, path := range filtered {
		rel := relativeTo(path, o.WorkDir)
		if totalSize >= readManyMaxTotalSize {
			skipped = append(skipped, skippedFile{path: rel, reason: "total size limit reached"})
			continue
		}
		content, reason := readTextCapped(path)
		if reason != "" {
			skipped = append(skipped, skippedFile{path: rel, reason: reason})
			continue
		}
		fmt.Fprintf(&contents, "--- %s ---\n\n%s\n\n", path, content)
		totalSize += len(content)
		processed = append(processed, rel)
	}

	if len(processed) == 0 {
		return DualResult("No files could be read.", "No files could be read")
	}
	contents.WriteString("\n--- END OF FILES ---\n")

	var b strings.Builder
	b.WriteString(contents.String())
	fmt.Fprintf(&b, "\nSuccessfully read %d file(s), %d bytes total.\n", len(processed), totalSize)
	fmt.Fprintf(&b, "Processed files:\n- %s\n", strings.Join(processed, "\n- "))
	if len(skipped) > 0 {
		b.WriteString("Skipped files:\n")
		for _, s := range skipped {
			fmt.Fprintf(&b, "- %s (%s)\n", s.path, s.reason)
		}
	}

	display := fmt.Sprintf("Read %d file(s), %d bytes total.", len(processed), totalSize)
	if len(skipped) > 0 {
		display += fmt.Sprintf(" Skipped %d.", len(skipped))
	}
	res := DualResult(b.String(), display)
	res.Data = map[string]any{
		"files_read":  len(processed),
		"total_bytes": totalSize,
		"skipped":     len(skipped),
	}
	return res
}

// readTextCapped reads path as text, returning a skip reason for
// oversized, binary, or unreadable files.
func readTextCapped(path string) (string, string) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Sprintf("Read error: %v", err)
	}
	if info.Size() > readManyMaxFileSize {
		return "", fmt.Sprintf("File too large (%d bytes, max %d)", info.Size(), readManyMaxFileSize)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", "Permission denied"
		}
		return "", fmt.Sprintf("Read error: %v", err)
	}
	probe := raw
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return "", "Binary file"
	}
	return decodeText(raw), ""
}

func expandPattern(pattern, workDir string, recursive bool) []string {
	searchDir := workDir
	matchPattern := pattern
	if filepath.IsAbs(pattern) {
		// Anchor at the deepest static directory prefix.
		static := pattern
		for strings.ContainsAny(static, "*?[") {
			static = filepath.Dir(static)
		}
		searchDir = static
		rel, err := filepath.Rel(static, pattern)
		if err != nil {
			return nil
		}
		matchPattern = filepath.ToSlash(rel)
	}
	if !recursive && strings.Contains(matchPattern, "**") {
		matchPattern = strings.ReplaceAll(matchPattern, "**/", "")
	}

	var out []string
	filepath.WalkDir(searchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(searchDir, path)
		if relErr != nil {
			return nil
		}
		if globMatch(matchPattern, filepath.ToSlash(rel), true) {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// readManyExcluded matches the whole relative path and each component
// against the exclusion globs.
func readManyExcluded(relPath string, excludes []string) bool {
	slashPath := filepath.ToSlash(relPath)
	for _, pattern := range excludes {
		if globMatch(pattern, slashPath, true) {
			return true
		}
		trimmed := strings.TrimSuffix(strings.TrimSuffix(pattern, "/**"), "/*")
		if trimmed != pattern && pathExcluded(relPath, []string{trimmed}) {
			return true
		}
	}
	return false
}

func relativeTo(path, base string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}

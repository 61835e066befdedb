package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Listing pages are bounded: directory contents are a common cause of
// context blowup, so a single call never emits more than listHardCap
// entries.
const (
	listDefaultLimit = 100
	listHardCap      = 500
)

func registerListDirectoryTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "list_directory",
		Description: "Lists files and subdirectories of a directory, directories first and " +
			"each group sorted case-insensitively. Large directories are paged; use " +
			"'offset' with the returned next_offset to continue.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dir_path": map[string]any{
					"type":        "string",
					"description": "Path of the directory to list",
				},
				"ignore": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Glob patterns of entry names to skip",
				},
				"respect_git_ignore": map[string]any{
					"type":        "boolean",
					"description": "Whether to honor .gitignore patterns (default true)",
				},
				"respect_gemini_ignore": map[string]any{
					"type":        "boolean",
					"description": "Whether to honor the agent ignore file (default true)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum entries to return (default 100, capped at 500)",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "Number of entries to skip (default 0)",
				},
			},
			"required": []string{"dir_path"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return listDirectory(o, args)
		},
	})
}

func listDirectory(o Options, args map[string]any) Result {
	dirPath := strArg(args, "dir_path")
	if dirPath == "" {
		return ErrorResult(ErrInvalidInput, "The 'dir_path' parameter cannot be empty.")
	}
	resolved := resolvePath(dirPath, o.WorkDir)

	info, err := os.Stat(resolved)
	if err != nil {
		return ErrorResult(ErrFileNotFound, "Directory not found or inaccessible: %s", resolved)
	}
	if !info.IsDir() {
		return ErrorResult(ErrNotADirectory, "Path is not a directory: %s", resolved)
	}

	patterns := strSliceArg(args, "ignore")
	patterns = append(patterns, loadIgnorePatterns(resolved,
		boolArg(args, "respect_git_ignore", true),
		boolArg(args, "respect_gemini_ignore", true))...)

	entries, err := os.ReadDir(resolved)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return ErrorResult(ErrPermissionDenied, "Permission denied: %s", dirPath)
		}
		return ErrorResult(ErrExecutionError, "Error listing directory: %v", err)
	}
	if len(entries) == 0 {
		return DualResult(fmt.Sprintf("Directory %s is empty.", resolved), "Directory is empty.")
	}

	var dirs, files []string
	ignoredCount := 0
	for _, entry := range entries {
		if matchesName(entry.Name(), patterns) {
			ignoredCount++
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	lower := func(s []string) {
		sort.Slice(s, func(i, j int) bool { return strings.ToLower(s[i]) < strings.ToLower(s[j]) })
	}
	lower(dirs)
	lower(files)

	formatted := make([]string, 0, len(dirs)+len(files))
	for _, d := range dirs {
		formatted = append(formatted, "[DIR] "+d)
	}
	formatted = append(formatted, files...)
	total := len(formatted)

	limit := intArg(args, "limit", listDefaultLimit)
	if limit <= 0 {
		limit = listDefaultLimit
	}
	if limit > listHardCap {
		limit = listHardCap
	}
	offset := intArg(args, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := formatted[offset:end]

	var b strings.Builder
	fmt.Fprintf(&b, "Directory listing for %s:\n", resolved)
	b.WriteString(strings.Join(page, "\n"))

	data := map[string]any{"total_entries": total}
	if end < total {
		data["next_offset"] = end
		fmt.Fprintf(&b, "\n\n(Showing entries %d-%d of %d. Use offset=%d to continue.)",
			offset+1, end, total, end)
	}
	if ignoredCount > 0 {
		fmt.Fprintf(&b, "\n\n(%d ignored)", ignoredCount)
	}

	display := fmt.Sprintf("Listed %d of %d item(s).", len(page), total)
	if ignoredCount > 0 {
		display += fmt.Sprintf(" (%d ignored)", ignoredCount)
	}
	res := DualResult(b.String(), display)
	res.Data = data
	return res
}

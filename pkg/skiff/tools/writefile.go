package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func registerWriteFileTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "write_file",
		Description: "Writes content to a file, overwriting it if it exists and creating " +
			"parent directories as needed. When updating a CRLF file the new content " +
			"is re-encoded to CRLF.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path of the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write",
				},
			},
			"required": []string{"file_path", "content"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return writeFile(o, args)
		},
	})
}

func writeFile(o Options, args map[string]any) Result {
	filePath := strArg(args, "file_path")
	if filePath == "" {
		return ErrorResult(ErrInvalidInput, "The 'file_path' parameter cannot be empty.")
	}
	if !hasArg(args, "content") {
		return ErrorResult(ErrInvalidInput, "The 'content' parameter is required.")
	}
	content := strArg(args, "content")
	resolved := resolvePath(filePath, o.WorkDir)

	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return ErrorResult(ErrTargetIsDirectory, "Path is a directory, not a file: %s", filePath)
	}

	var original string
	operation := "create"
	if raw, err := os.ReadFile(resolved); err == nil {
		operation = "update"
		original = decodeText(raw)
	}

	finalContent := content
	if operation == "update" && dominantLineEnding(original) == "\r\n" {
		finalContent = strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\n", "\r\n")
	}

	if parent := filepath.Dir(resolved); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return ErrorResult(ErrExecutionError, "Error creating parent directories: %v", err)
		}
	}
	if err := os.WriteFile(resolved, []byte(finalContent), 0o644); err != nil {
		switch {
		case errors.Is(err, os.ErrPermission):
			return ErrorResult(ErrPermissionDenied, "Permission denied: %s", filePath)
		case strings.Contains(err.Error(), "no space left"):
			return ErrorResult(ErrNoSpaceLeft, "Error writing file: %v", err)
		default:
			return ErrorResult(ErrExecutionError, "Error writing file: %v", err)
		}
	}

	numLines := len(splitLines(finalContent))
	var msg string
	if operation == "create" {
		msg = fmt.Sprintf("Successfully created and wrote to new file: %s.", filePath)
	} else {
		msg = fmt.Sprintf("Successfully overwrote file: %s.", filePath)
	}

	display := msg
	if diff := unifiedDiff(original, finalContent, filePath+" (old)", filePath+" (new)"); diff != "" {
		display = msg + "\n" + diff
	}
	res := DualResult(msg, display)
	res.Data = map[string]any{"operation": operation, "num_lines": numLines}
	return res
}

// dominantLineEnding reports the line ending convention of existing text.
func dominantLineEnding(content string) string {
	switch {
	case strings.Contains(content, "\r\n"):
		return "\r\n"
	case strings.Contains(content, "\n"):
		return "\n"
	case strings.Contains(content, "\r"):
		return "\r"
	}
	return "\n"
}

package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	readDefaultLineLimit = 2000
	maxReadFileBytes     = 10 * 1024 * 1024
)

var (
	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".webp": true, ".bmp": true, ".svg": true,
	}
	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".aiff": true, ".aac": true,
		".ogg": true, ".flac": true,
	}
)

func registerReadFileTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "read_file",
		Description: "Reads and returns the content of a file. Large files are truncated; " +
			"the response indicates truncation and how to read more via 'offset' and " +
			"'limit'. Images, audio files, and PDFs are returned as inline binary data.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path of the file to read",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "0-based line index to start reading from",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of lines to read (default 2000)",
				},
			},
			"required": []string{"file_path"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return readFile(o, args)
		},
	})
}

func readFile(o Options, args map[string]any) Result {
	filePath := strArg(args, "file_path")
	if filePath == "" {
		return ErrorResult(ErrInvalidInput, "The 'file_path' parameter cannot be empty.")
	}
	resolved := resolvePath(filePath, o.WorkDir)

	info, err := os.Stat(resolved)
	if err != nil {
		return ErrorResult(ErrFileNotFound, "File not found: %s", filePath)
	}
	if info.IsDir() {
		return ErrorResult(ErrPathIsDirectory, "Path is a directory, not a file: %s", filePath)
	}
	if info.Size() > maxReadFileBytes {
		return ErrorResult(ErrFileTooLarge,
			"File too large (%d bytes). Maximum size is %d bytes.", info.Size(), maxReadFileBytes)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	if fileKind(ext) != "text" {
		return readBinaryFile(resolved, filePath, ext)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return ErrorResult(ErrPermissionDenied, "Permission denied: %s", filePath)
		}
		return ErrorResult(ErrExecutionError, "Error reading file: %v", err)
	}

	allLines := strings.Split(strings.TrimSuffix(decodeText(raw), "\n"), "\n")
	if len(raw) == 0 {
		allLines = nil
	}
	totalLines := len(allLines)

	offset := intArg(args, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := intArg(args, "limit", 0)
	if limit <= 0 {
		limit = readDefaultLineLimit
	}
	start := offset
	if start > totalLines {
		start = totalLines
	}
	end := start + limit
	if end > totalLines {
		end = totalLines
	}
	selected := allLines[start:end]
	numbered := addLineNumbers(selected, start+1)

	if end < totalLines {
		nextOffset := start + len(selected)
		llmContent := fmt.Sprintf(`
IMPORTANT: The file content has been truncated.
Status: Showing lines %d-%d of %d total lines.
Action: To read more of the file, you can use the 'offset' and 'limit' parameters in a subsequent 'read_file' call. For example, to read the next section of the file, use offset: %d.

--- FILE CONTENT (truncated) ---
%s`, start+1, start+len(selected), totalLines, nextOffset, numbered)
		res := DualResult(llmContent,
			fmt.Sprintf("Showing lines %d-%d of %d", start+1, start+len(selected), totalLines))
		res.Data = map[string]any{"next_offset": nextOffset}
		return res
	}
	return DualResult(numbered, fmt.Sprintf("Read %d lines", totalLines))
}

func readBinaryFile(resolved, displayPath, ext string) Result {
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return ErrorResult(ErrExecutionError, "Error reading file: %v", err)
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		switch {
		case imageExtensions[ext]:
			mimeType = "image/" + ext[1:]
		case audioExtensions[ext]:
			mimeType = "audio/" + ext[1:]
		case ext == ".pdf":
			mimeType = "application/pdf"
		default:
			mimeType = "application/octet-stream"
		}
	}
	return InlineResult(mimeType, base64.StdEncoding.EncodeToString(raw),
		fmt.Sprintf("Read %s file: %s", fileKind(ext), displayPath))
}

func fileKind(ext string) string {
	switch {
	case imageExtensions[ext]:
		return "image"
	case audioExtensions[ext]:
		return "audio"
	case ext == ".pdf":
		return "pdf"
	}
	return "text"
}

// addLineNumbers prefixes each line with a right-aligned 1-based number.
func addLineNumbers(lines []string, startLine int) string {
	if len(lines) == 0 {
		return ""
	}
	width := len(fmt.Sprintf("%d", startLine+len(lines)-1))
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*d| %s", width, startLine+i, line)
	}
	return b.String()
}

// decodeText interprets raw bytes as UTF-8 with a Latin-1 fallback, so
// legacy-encoded files still read as text rather than erroring.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

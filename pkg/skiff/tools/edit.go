package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

func registerReplaceTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "replace",
		Description: "Replaces text within a file. By default replaces a single occurrence; " +
			"set 'expected_replacements' to change more. Matching tries exact text first, " +
			"then whitespace-flexible line matching, then a token-based flexible match. " +
			"An empty 'old_string' creates a new file with 'new_string' as content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path of the file to modify",
				},
				"instruction": map[string]any{
					"type":        "string",
					"description": "A clear description of the intended change",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "The exact literal text to replace",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "The replacement text",
				},
				"expected_replacements": map[string]any{
					"type":        "integer",
					"description": "Number of occurrences expected to change (default 1)",
				},
			},
			"required": []string{"file_path", "old_string", "new_string"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return replaceInFile(o, args)
		},
	})
}

func replaceInFile(o Options, args map[string]any) Result {
	filePath := strArg(args, "file_path")
	if filePath == "" {
		return ErrorResult(ErrInvalidInput, "The 'file_path' parameter cannot be empty.")
	}
	oldString := strArg(args, "old_string")
	newString := strArg(args, "new_string")
	expected := intArg(args, "expected_replacements", 1)
	resolved := resolvePath(filePath, o.WorkDir)

	if oldString == newString {
		return ErrorResult(ErrEditNoChange,
			"No changes to apply. The old_string and new_string are identical.")
	}

	_, statErr := os.Stat(resolved)
	fileExists := statErr == nil

	if oldString == "" {
		if fileExists {
			return ErrorResult(ErrAttemptToCreate,
				"File already exists, cannot create: %s. Use non-empty old_string to edit.", filePath)
		}
		if parent := filepath.Dir(resolved); parent != "" {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return ErrorResult(ErrExecutionError, "Error creating parent directories: %v", err)
			}
		}
		if err := os.WriteFile(resolved, []byte(newString), 0o644); err != nil {
			return ErrorResult(ErrExecutionError, "Error creating file: %v", err)
		}
		res := TextResult(fmt.Sprintf("Created new file: %s with provided content.", filePath))
		res.Data = map[string]any{
			"operation": "create",
			"num_lines": len(splitLines(newString)),
		}
		return res
	}

	if !fileExists {
		return ErrorResult(ErrFileNotFound, "File not found: %s", filePath)
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return ErrorResult(ErrPermissionDenied, "Permission denied: %s", filePath)
		}
		return ErrorResult(ErrExecutionError, "Error reading file: %v", err)
	}
	currentContent := decodeText(raw)
	hadCRLF := dominantLineEnding(currentContent) == "\r\n"
	normalized := strings.ReplaceAll(currentContent, "\r\n", "\n")

	modified, occurrences, strategy := applyEdit(normalized, oldString, newString)
	if occurrences == 0 {
		return ErrorResult(ErrEditNoOccurrenceFound,
			"Failed to edit, 0 occurrences found for old_string in %s. "+
				"Ensure you're not escaping content incorrectly and check whitespace, "+
				"indentation, and context. Use read_file tool to verify.", filePath)
	}
	if occurrences != expected {
		return ErrorResult(ErrEditOccurrenceMismatch,
			"Expected %d occurrence(s) but found %d.", expected, occurrences)
	}

	if hadCRLF {
		modified = strings.ReplaceAll(modified, "\n", "\r\n")
	}
	if err := os.WriteFile(resolved, []byte(modified), 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return ErrorResult(ErrPermissionDenied, "Permission denied: %s", filePath)
		}
		return ErrorResult(ErrExecutionError, "Error writing file: %v", err)
	}

	msg := fmt.Sprintf("Successfully modified file: %s (%d replacement(s)).", filePath, occurrences)
	display := msg
	base := filepath.Base(filePath)
	if diff := unifiedDiff(currentContent, modified, "a/"+base, "b/"+base); diff != "" {
		display = msg + "\n" + diff
	}
	res := DualResult(msg, display)
	res.Data = map[string]any{
		"operation":   "update",
		"occurrences": occurrences,
		"strategy":    strategy,
		"num_lines":   len(splitLines(modified)),
	}
	return res
}

// applyEdit runs the matching strategies in order and returns the modified
// text, the number of occurrences changed, and the strategy name. A zero
// count means no strategy matched and content is returned unchanged.
func applyEdit(content, oldString, newString string) (string, int, string) {
	oldNorm := strings.ReplaceAll(oldString, "\r\n", "\n")
	newNorm := strings.ReplaceAll(newString, "\r\n", "\n")

	if modified, n := exactReplacement(content, oldNorm, newNorm); n > 0 {
		return modified, n, "exact"
	}
	if modified, n := flexibleReplacement(content, oldNorm, newNorm); n > 0 {
		return modified, n, "flexible"
	}
	if modified, n := regexReplacement(content, oldNorm, newNorm); n > 0 {
		return modified, n, "regex"
	}
	return content, 0, ""
}

func exactReplacement(content, oldStr, newStr string) (string, int) {
	n := strings.Count(content, oldStr)
	if n == 0 {
		return content, 0
	}
	modified := restoreTrailingNewline(content, strings.ReplaceAll(content, oldStr, newStr))
	return modified, n
}

// flexibleReplacement slides a window of the same line count over the
// source, comparing whitespace-stripped lines. On a match the window is
// replaced by the new lines re-indented to the window's first line.
func flexibleReplacement(content, oldStr, newStr string) (string, int) {
	sourceLines := strings.Split(content, "\n")
	searchStripped := stripAll(strings.Split(oldStr, "\n"))
	replaceLines := strings.Split(newStr, "\n")
	if len(searchStripped) == 0 {
		return content, 0
	}

	occurrences := 0
	for i := 0; i <= len(sourceLines)-len(searchStripped); {
		window := sourceLines[i : i+len(searchStripped)]
		if !equalStripped(window, searchStripped) {
			i++
			continue
		}
		occurrences++
		indent := leadingWhitespace(window[0])
		newBlock := make([]string, len(replaceLines))
		for j, line := range replaceLines {
			newBlock[j] = indent + line
		}
		rebuilt := append([]string{}, sourceLines[:i]...)
		rebuilt = append(rebuilt, newBlock...)
		rebuilt = append(rebuilt, sourceLines[i+len(searchStripped):]...)
		sourceLines = rebuilt
		i += len(replaceLines)
	}
	if occurrences == 0 {
		return content, 0
	}
	return restoreTrailingNewline(content, strings.Join(sourceLines, "\n")), occurrences
}

// editDelimiters are split out as standalone tokens before building the
// flexible pattern.
var editDelimiters = []string{"(", ")", ":", "[", "]", "{", "}", ">", "<", "="}

// regexReplacement tokenizes the old text on whitespace and punctuation
// delimiters, joins the escaped tokens with \s*, and applies exactly one
// anchored replacement with the captured indentation prefixed to each
// replacement line. Dollar signs in the replacement stay literal.
func regexReplacement(content, oldStr, newStr string) (string, int) {
	processed := oldStr
	for _, delim := range editDelimiters {
		processed = strings.ReplaceAll(processed, delim, " "+delim+" ")
	}
	tokens := strings.Fields(processed)
	if len(tokens) == 0 {
		return content, 0
	}
	escaped := make([]string, len(tokens))
	for i, tok := range tokens {
		escaped[i] = regexp.QuoteMeta(tok)
	}
	pattern := `(?m)^([ \t]*)` + strings.Join(escaped, `\s*`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return content, 0
	}

	loc := re.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, 0
	}
	indent := content[loc[2]:loc[3]]
	newLines := strings.Split(newStr, "\n")
	for i, line := range newLines {
		newLines[i] = indent + line
	}
	// Splice manually so "$" in the replacement is never expanded.
	modified := content[:loc[0]] + strings.Join(newLines, "\n") + content[loc[1]:]
	return restoreTrailingNewline(content, modified), 1
}

func restoreTrailingNewline(original, modified string) string {
	hadTrailing := strings.HasSuffix(original, "\n")
	if hadTrailing && !strings.HasSuffix(modified, "\n") {
		return modified + "\n"
	}
	if !hadTrailing && strings.HasSuffix(modified, "\n") {
		return strings.TrimRight(modified, "\n")
	}
	return modified
}

func stripAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimSpace(line)
	}
	return out
}

func equalStripped(window, searchStripped []string) bool {
	for i, line := range window {
		if strings.TrimSpace(line) != searchStripped[i] {
			return false
		}
	}
	return true
}

func leadingWhitespace(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

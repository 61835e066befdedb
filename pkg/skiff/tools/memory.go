package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// memorySectionHeader marks the block of the memory file that this tool
// owns. Content in other sections is preserved untouched.
const memorySectionHeader = "## Gemini Added Memories"

var leadingDashes = regexp.MustCompile(`^(-+\s*)+`)

func registerSaveMemoryTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "save_memory",
		Description: "Saves a specific fact to long-term memory. Use when the user " +
			"explicitly asks to remember something, or states a clear, concise fact " +
			"worth retaining across sessions.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"fact": map[string]any{
					"type":        "string",
					"description": "The specific fact or piece of information to remember",
				},
			},
			"required": []string{"fact"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return saveMemory(o, args)
		},
	})
}

func saveMemory(o Options, args map[string]any) Result {
	fact := strArg(args, "fact")
	if strings.TrimSpace(fact) == "" {
		return ErrorResult(ErrInvalidParameter, `Parameter "fact" must be a non-empty string.`)
	}

	filePath := o.MemoryFile
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return ErrorResult(ErrExecutionError, "Failed to save memory. Detail: %v", err)
	}

	current := ""
	if raw, err := os.ReadFile(filePath); err == nil {
		current = string(raw)
	}
	updated := appendMemoryFact(current, fact)
	if err := os.WriteFile(filePath, []byte(updated), 0o644); err != nil {
		if os.IsPermission(err) {
			return ErrorResult(ErrPermissionDenied,
				"Permission denied writing to memory file: %s", filePath)
		}
		return ErrorResult(ErrExecutionError, "Failed to save memory. Detail: %v", err)
	}

	msg := fmt.Sprintf("Okay, I've remembered that: %q", fact)
	payload, _ := json.Marshal(map[string]any{"success": true, "message": msg})
	return DualResult(string(payload), msg)
}

// appendMemoryFact inserts "- <cleaned fact>" at the end of the memory
// section, creating the section when absent and preserving any later
// sections.
func appendMemoryFact(current, fact string) string {
	cleaned := strings.TrimSpace(leadingDashes.ReplaceAllString(strings.TrimSpace(fact), ""))
	newItem := "- " + cleaned

	headerIndex := strings.Index(current, memorySectionHeader)
	if headerIndex == -1 {
		return current + newlineSeparator(current) + memorySectionHeader + "\n" + newItem + "\n"
	}

	startOfSection := headerIndex + len(memorySectionHeader)
	endOfSection := strings.Index(current[startOfSection:], "\n## ")
	if endOfSection == -1 {
		endOfSection = len(current)
	} else {
		endOfSection += startOfSection
	}

	before := strings.TrimRight(current[:startOfSection], " \t\r\n")
	section := strings.TrimRight(current[startOfSection:endOfSection], " \t\r\n")
	after := current[endOfSection:]

	section += "\n" + newItem
	result := before + "\n" + strings.TrimLeft(section, " \t\r\n") + "\n" + after
	return strings.TrimRight(result, " \t\r\n") + "\n"
}

// newlineSeparator yields the padding needed so appended content starts on
// its own paragraph.
func newlineSeparator(content string) string {
	switch {
	case content == "":
		return ""
	case strings.HasSuffix(content, "\n\n") || strings.HasSuffix(content, "\r\n\r\n"):
		return ""
	case strings.HasSuffix(content, "\n"):
		return "\n"
	default:
		return "\n\n"
	}
}

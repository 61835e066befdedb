package tools

import (
	"context"
	"fmt"
	"strings"
)

var todoStatuses = []string{"pending", "in_progress", "completed", "cancelled"}

var todoGlyphs = map[string]string{
	"pending":     "○",
	"in_progress": "◉",
	"completed":   "✓",
	"cancelled":   "✗",
}

func registerWriteTodosTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "write_todos",
		Description: "Updates the todo list tracking subtasks of a complex request. " +
			"Each entry has a description and a status (pending, in_progress, " +
			"completed, cancelled); at most one entry may be in_progress.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todos": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description": map[string]any{
								"type":        "string",
								"description": "The task description",
							},
							"status": map[string]any{
								"type": "string",
								"enum": todoStatuses,
							},
						},
						"required": []string{"description", "status"},
					},
					"description": "The complete todo list (replaces the previous one)",
				},
			},
			"required": []string{"todos"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return writeTodos(args)
		},
	})
}

func writeTodos(args map[string]any) Result {
	raw, ok := args["todos"].([]any)
	if !ok {
		return ErrorResult(ErrInvalidInput, "'todos' must be an array.")
	}

	type todo struct {
		description string
		status      string
	}
	var todos []todo
	inProgressCount := 0
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return ErrorResult(ErrInvalidInput, "Todo %d: Must be an object.", i+1)
		}
		description := strings.TrimSpace(strArg(entry, "description"))
		if description == "" {
			return ErrorResult(ErrMissingDescription,
				"Todo %d: 'description' is required and must be non-empty.", i+1)
		}
		status := strArg(entry, "status")
		if !validTodoStatus(status) {
			return ErrorResult(ErrInvalidStatus,
				"Todo %d: Invalid status '%s'. Must be one of: %s",
				i+1, status, strings.Join(todoStatuses, ", "))
		}
		if status == "in_progress" {
			inProgressCount++
		}
		todos = append(todos, todo{description: description, status: status})
	}
	if inProgressCount > 1 {
		return ErrorResult(ErrMultipleInProgress,
			"Only one task can be 'in_progress' at a time. Found %d.", inProgressCount)
	}
	if len(todos) == 0 {
		return TextResult("Todo list cleared.")
	}

	counts := map[string]int{}
	var lines []string
	for i, t := range todos {
		counts[t.status]++
		lines = append(lines, fmt.Sprintf("%d. [%s] [%s] %s", i+1, todoGlyphs[t.status], t.status, t.description))
	}

	var summaryParts []string
	for _, status := range []string{"completed", "in_progress", "pending", "cancelled"} {
		if counts[status] > 0 {
			label := strings.ReplaceAll(status, "_", " ")
			summaryParts = append(summaryParts, fmt.Sprintf("%d %s", counts[status], label))
		}
	}
	summary := strings.Join(summaryParts, ", ")

	msg := fmt.Sprintf("Successfully updated the todo list. Current status: %s.", summary)
	res := DualResult(msg+"\n"+strings.Join(lines, "\n"), strings.Join(lines, "\n"))
	res.Data = map[string]any{"count": len(todos), "summary": counts}
	return res
}

func validTodoStatus(status string) bool {
	for _, s := range todoStatuses {
		if s == status {
			return true
		}
	}
	return false
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	askMaxQuestions   = 4
	askMaxHeaderChars = 12
	askMinOptions     = 2
	askMaxOptions     = 4
)

// Question is one validated entry of an ask_user call.
type Question struct {
	Index       int              `json:"index"`
	Question    string           `json:"question"`
	Header      string           `json:"header"`
	Type        string           `json:"type"`
	Options     []QuestionOption `json:"options,omitempty"`
	MultiSelect bool             `json:"multiSelect,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
}

// QuestionOption is a selectable answer for a choice question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

func registerAskUserTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "ask_user",
		Description: "Asks the user up to 4 questions to gather preferences or resolve " +
			"ambiguity. Supports 'choice' (2-4 options), 'text' and 'yesno' question " +
			"types. Answers are collected by the surrounding interface.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"question": map[string]any{
								"type":        "string",
								"description": "The question text",
							},
							"header": map[string]any{
								"type":        "string",
								"description": "Short label shown with the question (max 12 chars)",
							},
							"type": map[string]any{
								"type": "string",
								"enum": []string{"choice", "text", "yesno"},
							},
							"options": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"label":       map[string]any{"type": "string"},
										"description": map[string]any{"type": "string"},
									},
									"required": []string{"label"},
								},
							},
							"multiSelect": map[string]any{
								"type":        "boolean",
								"description": "Allow multiple selections (choice type only)",
							},
							"placeholder": map[string]any{
								"type":        "string",
								"description": "Hint text (text type only)",
							},
						},
						"required": []string{"question", "header"},
					},
					"description": "The questions to ask (1-4)",
				},
			},
			"required": []string{"questions"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return askUser(args)
		},
	})
}

func askUser(args map[string]any) Result {
	raw, ok := args["questions"].([]any)
	if !ok || len(raw) == 0 {
		return ErrorResult(ErrInvalidInput, "At least one question is required.")
	}
	if len(raw) > askMaxQuestions {
		return ErrorResult(ErrInvalidInput, "Maximum %d questions allowed.", askMaxQuestions)
	}

	questions, errRes := ParseQuestions(raw)
	if errRes != nil {
		return *errRes
	}

	var formatted []string
	for _, q := range questions {
		entry := fmt.Sprintf("\n**[%s]** %s", q.Header, q.Question)
		switch q.Type {
		case "choice":
			entry += "\nOptions:"
			for j, opt := range q.Options {
				entry += fmt.Sprintf("\n  %d. %s", j+1, opt.Label)
				if opt.Description != "" {
					entry += " - " + opt.Description
				}
			}
			if q.MultiSelect {
				entry += "\n  (Multiple selections allowed)"
			}
		case "yesno":
			entry += "\n  [Yes / No]"
		case "text":
			if q.Placeholder != "" {
				entry += fmt.Sprintf("\n  (Hint: %s)", q.Placeholder)
			}
		}
		formatted = append(formatted, entry)
	}

	payload, _ := json.Marshal(map[string]any{
		"type":              "ask_user",
		"questions":         questions,
		"message":           "Please answer the following question(s):",
		"awaiting_response": true,
	})
	res := DualResult(string(payload),
		"Please answer the following question(s):\n"+strings.Join(formatted, "\n"))
	res.Data = map[string]any{"question_count": len(questions)}
	return res
}

// ParseQuestions validates the raw question entries. It is shared with the
// interactive collector in the CLI layer.
func ParseQuestions(raw []any) ([]Question, *Result) {
	fail := func(errType, format string, args ...any) *Result {
		r := ErrorResult(errType, format, args...)
		return &r
	}

	var out []Question
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fail(ErrInvalidInput, "Question %d: Must be an object.", i+1)
		}
		q := Question{
			Index:    i,
			Question: strArg(entry, "question"),
			Header:   strArg(entry, "header"),
			Type:     strArgDefault(entry, "type", "choice"),
		}
		if q.Question == "" {
			return nil, fail(ErrInvalidInput, "Question %d: 'question' is required.", i+1)
		}
		if q.Header == "" {
			return nil, fail(ErrInvalidInput, "Question %d: 'header' is required.", i+1)
		}
		if len([]rune(q.Header)) > askMaxHeaderChars {
			return nil, fail(ErrInvalidInput,
				"Question %d: 'header' must be at most %d characters.", i+1, askMaxHeaderChars)
		}

		switch q.Type {
		case "choice":
			rawOpts, _ := entry["options"].([]any)
			if len(rawOpts) < askMinOptions {
				return nil, fail(ErrInvalidInput,
					"Question %d: 'choice' type requires %d-%d options.", i+1, askMinOptions, askMaxOptions)
			}
			if len(rawOpts) > askMaxOptions {
				return nil, fail(ErrInvalidInput,
					"Question %d: Maximum %d options allowed.", i+1, askMaxOptions)
			}
			for j, rawOpt := range rawOpts {
				optMap, ok := rawOpt.(map[string]any)
				if !ok {
					return nil, fail(ErrInvalidInput,
						"Question %d, option %d: Must be an object.", i+1, j+1)
				}
				opt := QuestionOption{
					Label:       strArg(optMap, "label"),
					Description: strArg(optMap, "description"),
				}
				if opt.Label == "" {
					return nil, fail(ErrInvalidInput,
						"Question %d, option %d: 'label' is required.", i+1, j+1)
				}
				q.Options = append(q.Options, opt)
			}
			q.MultiSelect = boolArg(entry, "multiSelect", false)
		case "text":
			q.Placeholder = strArg(entry, "placeholder")
		case "yesno":
		default:
			return nil, fail(ErrInvalidInput,
				"Question %d: Invalid type '%s'. Must be choice, text, or yesno.", i+1, q.Type)
		}
		out = append(out, q)
	}
	return out, nil
}

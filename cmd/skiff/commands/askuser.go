package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/skiffworks/skiff/pkg/skiff/agent"
	"github.com/skiffworks/skiff/pkg/skiff/tools"
)

// newAskUserMiddleware intercepts ask_user tool results and, when the
// process is attached to a terminal, collects real answers with an
// interactive form. Without a terminal the tool's awaiting_response
// payload passes through untouched.
func newAskUserMiddleware(logger *slog.Logger) agent.Middleware {
	logger = logger.With("component", "ask_user")

	return agent.Middleware{
		Name: "ask_user_tty",
		AfterTool: func(in *agent.HookInput) (agent.HookResult, error) {
			if in.ToolCall == nil || in.ToolCall.Function.Name != "ask_user" {
				return agent.NoChanges(), nil
			}
			if in.ToolOutput == nil || in.ToolOutput.IsError() {
				return agent.NoChanges(), nil
			}
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return agent.NoChanges(), nil
			}

			questions, err := questionsFromArgs(in.ToolCall.Function.Arguments)
			if err != nil {
				logger.Warn("could not parse ask_user questions", "error", err)
				return agent.NoChanges(), nil
			}

			answers, err := collectAnswers(questions)
			if err != nil {
				logger.Warn("interactive form aborted", "error", err)
				return agent.NoChanges(), nil
			}

			result := tools.TextResult(answers)
			return agent.HookResult{ToolOutput: &result}, nil
		},
	}
}

func questionsFromArgs(rawArgs string) ([]tools.Question, error) {
	var args struct {
		Questions []any `json:"questions"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return nil, err
	}
	questions, errResult := tools.ParseQuestions(args.Questions)
	if errResult != nil {
		return nil, fmt.Errorf("%s", errResult.Error.Message)
	}
	return questions, nil
}

// collectAnswers runs one huh form over all questions and renders the
// answers as the tool output the model reads next turn.
func collectAnswers(questions []tools.Question) (string, error) {
	texts := make([]string, len(questions))
	multis := make([][]string, len(questions))
	confirms := make([]bool, len(questions))

	var fields []huh.Field
	for i, q := range questions {
		title := q.Question
		if q.Header != "" {
			title = fmt.Sprintf("[%s] %s", q.Header, q.Question)
		}
		switch q.Type {
		case "choice":
			opts := make([]huh.Option[string], len(q.Options))
			for j, o := range q.Options {
				label := o.Label
				if o.Description != "" {
					label = fmt.Sprintf("%s - %s", o.Label, o.Description)
				}
				opts[j] = huh.NewOption(label, o.Label)
			}
			if q.MultiSelect {
				fields = append(fields, huh.NewMultiSelect[string]().
					Title(title).
					Options(opts...).
					Value(&multis[i]))
			} else {
				fields = append(fields, huh.NewSelect[string]().
					Title(title).
					Options(opts...).
					Value(&texts[i]))
			}
		case "yesno":
			fields = append(fields, huh.NewConfirm().
				Title(title).
				Value(&confirms[i]))
		default:
			fields = append(fields, huh.NewInput().
				Title(title).
				Placeholder(q.Placeholder).
				Value(&texts[i]))
		}
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("The user answered:\n")
	for i, q := range questions {
		answer := texts[i]
		switch {
		case q.Type == "choice" && q.MultiSelect:
			answer = strings.Join(multis[i], ", ")
		case q.Type == "yesno":
			answer = "No"
			if confirms[i] {
				answer = "Yes"
			}
		}
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, q.Question, answer)
	}
	return b.String(), nil
}

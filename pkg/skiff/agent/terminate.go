package agent

import (
	"encoding/json"
	"log/slog"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
	"github.com/skiffworks/skiff/pkg/skiff/tools"
)

const graceWarning = "You have stopped calling tools without finishing. " +
	"You have one final chance. You MUST call `complete_task` immediately " +
	"with your best answer. Do not call any other tools."

// NewTerminationMiddleware coerces clean termination. The model is
// expected to finish by calling complete_task; when it instead stops
// producing tool calls, it gets exactly one warned grace turn before
// the loop exits with ERROR_NO_COMPLETE_TASK_CALL.
func NewTerminationMiddleware(logger *slog.Logger) Middleware {
	logger = logger.With("component", "termination")
	noToolCallCount := 0

	return Middleware{
		Name: "termination",
		BeforeModel: func(in *HookInput) (HookResult, error) {
			if noToolCallCount != 1 {
				return NoChanges(), nil
			}
			logger.Warn("model stopped calling tools, injecting grace warning")
			msgs := append(append([]llm.Message{}, in.Messages...), llm.UserMessage(graceWarning))
			return WithMessages(msgs), nil
		},
		AfterModel: func(in *HookInput) (HookResult, error) {
			resp := in.Response
			if resp == nil {
				return NoChanges(), nil
			}
			for _, tc := range resp.ToolCalls {
				if tc.Function.Name != tools.CompleteTaskToolName {
					continue
				}
				in.State.FinalResult = completeTaskResult(tc.Function.Arguments, resp.Content)
				in.State.TerminateReason = TerminateGoal
				in.State.Storage["task_completed"] = true
				logger.Info("complete_task called, terminating", "turn", in.State.TurnCount)
				// Suppress every tool call on this turn, including any
				// co-called tools, so dispatch does nothing.
				cleared := *resp
				cleared.ToolCalls = nil
				return HookResult{Response: &cleared}, nil
			}
			if len(resp.ToolCalls) > 0 {
				noToolCallCount = 0
				return NoChanges(), nil
			}
			noToolCallCount++
			in.State.Storage["no_tool_call_count"] = noToolCallCount
			if noToolCallCount >= 2 {
				in.State.TerminateReason = TerminateNoCompleteCall
				logger.Error("model never called complete_task, giving up")
				return NoChanges(), nil
			}
			return HookResult{ForceContinue: true}, nil
		},
	}
}

// completeTaskResult pulls the result parameter out of a complete_task
// call, falling back to the assistant text when the arguments are
// malformed or empty.
func completeTaskResult(rawArgs, fallback string) string {
	var args struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err == nil && args.Result != "" {
		return args.Result
	}
	return fallback
}

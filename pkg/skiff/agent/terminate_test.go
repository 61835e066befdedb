package agent

import (
	"strings"
	"testing"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

func callTool(name, args string) llm.ToolCall {
	return llm.ToolCall{
		ID:       "call-1",
		Type:     "function",
		Function: llm.FunctionCall{Name: name, Arguments: args},
	}
}

func TestTerminationOnCompleteTask(t *testing.T) {
	mw := NewTerminationMiddleware(testLogger())
	state := NewState()

	resp := &llm.Response{
		Content: "done",
		ToolCalls: []llm.ToolCall{
			callTool("complete_task", `{"result": "the final answer"}`),
			callTool("read_file", `{"file_path": "/tmp/x"}`),
		},
	}
	res, err := mw.AfterModel(&HookInput{State: state, Response: resp})
	if err != nil {
		t.Fatal(err)
	}

	if state.TerminateReason != TerminateGoal {
		t.Errorf("expected GOAL, got %q", state.TerminateReason)
	}
	if state.FinalResult != "the final answer" {
		t.Errorf("final result not captured: %q", state.FinalResult)
	}
	if res.Response == nil || len(res.Response.ToolCalls) != 0 {
		t.Error("complete_task must clear every tool call, including co-called tools")
	}
}

func TestTerminationCompleteTaskMalformedArgsFallsBackToText(t *testing.T) {
	mw := NewTerminationMiddleware(testLogger())
	state := NewState()

	resp := &llm.Response{
		Content:   "assistant text answer",
		ToolCalls: []llm.ToolCall{callTool("complete_task", `not json`)},
	}
	if _, err := mw.AfterModel(&HookInput{State: state, Response: resp}); err != nil {
		t.Fatal(err)
	}
	if state.FinalResult != "assistant text answer" {
		t.Errorf("expected fallback to assistant text, got %q", state.FinalResult)
	}
}

func TestTerminationGraceFlow(t *testing.T) {
	mw := NewTerminationMiddleware(testLogger())
	state := NewState()

	// Turn 1: no tool calls. One grace turn is granted.
	res, err := mw.AfterModel(&HookInput{State: state, Response: &llm.Response{Content: "rambling"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.ForceContinue {
		t.Error("first tool-less turn must force continuation")
	}
	if state.TerminateReason != "" {
		t.Errorf("no terminate reason expected yet, got %q", state.TerminateReason)
	}

	// Before the grace turn the warning is injected at the tail.
	msgs := []llm.Message{llm.UserMessage("original query")}
	before, err := mw.BeforeModel(&HookInput{State: state, Messages: msgs})
	if err != nil {
		t.Fatal(err)
	}
	if !before.MessagesChanged || len(before.Messages) != 2 {
		t.Fatal("grace warning message not injected")
	}
	warning := before.Messages[1]
	if warning.Role != llm.RoleUser || !strings.Contains(warning.Text(), "MUST call `complete_task`") {
		t.Errorf("unexpected grace warning: %q", warning.Text())
	}

	// Turn 2: still no tool calls. The loop must end with the error reason.
	res, err = mw.AfterModel(&HookInput{State: state, Response: &llm.Response{Content: "still rambling"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.ForceContinue {
		t.Error("second tool-less turn must not force continuation")
	}
	if state.TerminateReason != TerminateNoCompleteCall {
		t.Errorf("expected ERROR_NO_COMPLETE_TASK_CALL, got %q", state.TerminateReason)
	}
}

func TestTerminationCounterResetsOnToolCalls(t *testing.T) {
	mw := NewTerminationMiddleware(testLogger())
	state := NewState()

	if _, err := mw.AfterModel(&HookInput{State: state, Response: &llm.Response{}}); err != nil {
		t.Fatal(err)
	}
	// A turn with real tool calls resets the counter.
	withTools := &llm.Response{ToolCalls: []llm.ToolCall{callTool("glob", `{"pattern":"*.go"}`)}}
	if _, err := mw.AfterModel(&HookInput{State: state, Response: withTools}); err != nil {
		t.Fatal(err)
	}
	// Another tool-less turn should grant a fresh grace turn, not terminate.
	res, err := mw.AfterModel(&HookInput{State: state, Response: &llm.Response{}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.ForceContinue || state.TerminateReason != "" {
		t.Error("counter did not reset after a tool-calling turn")
	}
}

package agent

import (
	"strings"
	"testing"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

func TestHeuristicEstimatorCountsContentAndOverhead(t *testing.T) {
	est := HeuristicEstimator{}

	empty := llm.UserMessage("")
	if got := est.CountMessage(empty); got != messageOverheadTokens {
		t.Errorf("empty message should cost only the overhead, got %d", got)
	}

	msg := llm.UserMessage(strings.Repeat("a", 400))
	if got := est.CountMessage(msg); got != 100+messageOverheadTokens {
		t.Errorf("expected 4 chars per token plus overhead, got %d", got)
	}
}

func TestHeuristicEstimatorCountsToolCalls(t *testing.T) {
	est := HeuristicEstimator{}

	plain := llm.AssistantMessage("text", nil)
	withCall := llm.AssistantMessage("text", []llm.ToolCall{{
		Function: llm.FunctionCall{
			Name:      strings.Repeat("n", 40),
			Arguments: strings.Repeat("a", 80),
		},
	}})

	diff := est.CountMessage(withCall) - est.CountMessage(plain)
	if diff != 10+20 {
		t.Errorf("tool call should add name and argument tokens, got +%d", diff)
	}
}

func TestHeuristicEstimatorCountsInlinePayloads(t *testing.T) {
	est := HeuristicEstimator{}

	msg := llm.ToolMessage("c1", "read_file", "")
	msg.Content = []llm.ContentPart{llm.InlinePart("image/png", strings.Repeat("A", 4000))}

	if got := est.CountMessage(msg); got != 1000+messageOverheadTokens {
		t.Errorf("inline base64 should be charged at 4 chars per token, got %d", got)
	}
}

func TestHeuristicEstimatorIsMonotone(t *testing.T) {
	est := HeuristicEstimator{}
	short := []llm.Message{llm.UserMessage("short")}
	longer := append(short, llm.UserMessage("a longer second message"))

	if est.CountMessages(longer) <= est.CountMessages(short) {
		t.Error("adding a message must increase the estimate")
	}
}

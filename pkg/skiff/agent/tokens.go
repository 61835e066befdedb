package agent

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

// messageOverheadTokens approximates the per-message framing cost
// (role, name, separators) that providers charge on top of content.
const messageOverheadTokens = 10

// Estimator approximates the token cost of a message list. Estimates
// only need to be monotone in content length; compaction never relies
// on exact counts.
type Estimator interface {
	CountMessage(msg llm.Message) int
	CountMessages(msgs []llm.Message) int
}

// HeuristicEstimator is the default: roughly 4 characters per token,
// plus a constant overhead per message, plus the serialized tool calls.
type HeuristicEstimator struct{}

func (HeuristicEstimator) CountMessage(msg llm.Message) int {
	n := len(msg.Text())/4 + inlineDataChars(msg)/4 + messageOverheadTokens
	for _, tc := range msg.ToolCalls {
		n += len(tc.Function.Name) / 4
		n += len(tc.Function.Arguments) / 4
	}
	return n
}

// inlineDataChars sums the base64 payload sizes of a multimodal body.
// Text() skips inline parts, so they are charged separately.
func inlineDataChars(msg llm.Message) int {
	parts, ok := msg.Content.([]llm.ContentPart)
	if !ok {
		return 0
	}
	total := 0
	for _, p := range parts {
		if p.InlineData != nil {
			total += len(p.InlineData.Data)
		}
	}
	return total
}

func (e HeuristicEstimator) CountMessages(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += e.CountMessage(m)
	}
	return total
}

// TiktokenEstimator counts with a real BPE vocabulary. Construction can
// fail (the encoding tables may need a network fetch on first use), so
// callers fall back to the heuristic when it does.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (e *TiktokenEstimator) CountMessage(msg llm.Message) int {
	n := len(e.enc.Encode(msg.Text(), nil, nil)) + inlineDataChars(msg)/4 + messageOverheadTokens
	for _, tc := range msg.ToolCalls {
		n += len(e.enc.Encode(tc.Function.Name, nil, nil))
		n += len(e.enc.Encode(tc.Function.Arguments, nil, nil))
	}
	return n
}

func (e *TiktokenEstimator) CountMessages(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += e.CountMessage(m)
	}
	return total
}

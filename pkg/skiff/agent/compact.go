package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
	"github.com/skiffworks/skiff/pkg/skiff/trace"
)

const (
	defaultCompactThreshold = 0.5
	defaultPreserveRatio    = 0.3
	defaultToolOutputBudget = 50_000
	defaultTruncateLines    = 30
	collapsePreviewChars    = 200
	aggressiveThreshold     = 0.3
	aggressivePreserveRatio = 0.2
	aggressiveToolBudget    = 10_000
	aggressiveTruncateLines = 20
)

// SnapshotGenerator turns the dropped conversation prefix into one
// system message (goal, constraints, artifact trail, task state). When
// nil, compaction falls back to a plain removal notice.
type SnapshotGenerator func(ctx context.Context, dropped []llm.Message) (string, error)

// CompactionOptions tunes when and how hard the compactor squeezes.
type CompactionOptions struct {
	MaxContextTokens int
	// Threshold is the trigger ratio: compact once the estimated token
	// count reaches Threshold*MaxContextTokens.
	Threshold        float64
	PreserveRatio    float64
	ToolOutputBudget int
	TruncateLines    int
	// Aggressive additionally collapses runs of three or more
	// consecutive tool messages from the same tool.
	Aggressive bool
}

func (o CompactionOptions) withDefaults() CompactionOptions {
	if o.Threshold <= 0 {
		o.Threshold = defaultCompactThreshold
		if o.Aggressive {
			o.Threshold = aggressiveThreshold
		}
	}
	if o.PreserveRatio <= 0 {
		o.PreserveRatio = defaultPreserveRatio
		if o.Aggressive {
			o.PreserveRatio = aggressivePreserveRatio
		}
	}
	if o.ToolOutputBudget <= 0 {
		o.ToolOutputBudget = defaultToolOutputBudget
		if o.Aggressive {
			o.ToolOutputBudget = aggressiveToolBudget
		}
	}
	if o.TruncateLines <= 0 {
		o.TruncateLines = defaultTruncateLines
		if o.Aggressive {
			o.TruncateLines = aggressiveTruncateLines
		}
	}
	return o
}

// Compactor keeps the message log under the context window by
// truncating oversized tool outputs, preserving a recency window and
// replacing the dropped prefix with a snapshot or a notice.
type Compactor struct {
	opts      CompactionOptions
	estimator Estimator
	generator SnapshotGenerator
	tracer    trace.Tracer
	logger    *slog.Logger

	// lastSnapshot remembers the snapshot injected by the previous
	// round so the next round replaces it instead of stacking notices.
	lastSnapshot string
}

func NewCompactor(opts CompactionOptions, est Estimator, gen SnapshotGenerator, tracer trace.Tracer, logger *slog.Logger) *Compactor {
	if est == nil {
		est = HeuristicEstimator{}
	}
	if tracer == nil {
		tracer = trace.Nop{}
	}
	return &Compactor{
		opts:      opts.withDefaults(),
		estimator: est,
		generator: gen,
		tracer:    tracer,
		logger:    logger.With("component", "compactor"),
	}
}

// Middleware wires the compactor in as a before-model hook.
func (c *Compactor) Middleware() Middleware {
	return Middleware{
		Name: "compaction",
		BeforeModel: func(in *HookInput) (HookResult, error) {
			compacted, changed := c.Compact(in.Ctx, in.Messages, in.State)
			if !changed {
				return NoChanges(), nil
			}
			return WithMessages(compacted), nil
		},
	}
}

// Compact runs the compression pipeline. It reports changed=false when
// the trigger did not fire or nothing could be removed.
func (c *Compactor) Compact(ctx context.Context, messages []llm.Message, state *State) ([]llm.Message, bool) {
	before := c.estimator.CountMessages(messages)
	if float64(before) < c.opts.Threshold*float64(c.opts.MaxContextTokens) {
		return messages, false
	}

	system, conversational := partitionMessages(messages)
	if c.opts.Aggressive {
		conversational = collapseToolRuns(conversational)
	}
	conversational = c.truncateToolOutputs(conversational)

	kept := c.preserveTail(conversational)
	dropped := conversational[:len(conversational)-len(kept)]
	if len(dropped) == 0 {
		truncated := append(append([]llm.Message{}, system...), conversational...)
		after := c.estimator.CountMessages(truncated)
		if after >= before {
			return messages, false
		}
		c.record(state, before, after, 0)
		return truncated, true
	}

	droppedTokens := c.estimator.CountMessages(dropped)
	snapshot := c.snapshot(ctx, dropped, droppedTokens, len(kept))

	system = c.withoutPriorSnapshot(system)
	out := make([]llm.Message, 0, len(system)+1+len(kept))
	out = append(out, system...)
	out = append(out, snapshot)
	out = append(out, kept...)

	after := c.estimator.CountMessages(out)
	if after >= before {
		return messages, false
	}
	c.lastSnapshot = snapshot.Text()
	c.logger.Info("compacted context",
		"tokens_before", before,
		"tokens_after", after,
		"removed_messages", len(dropped),
		"preserved_messages", len(kept))
	c.record(state, before, after, len(dropped))
	return out, true
}

func (c *Compactor) record(state *State, before, after, removed int) {
	if state == nil {
		return
	}
	count, _ := state.Storage["compact_context_count"].(int)
	state.Storage["compact_context_count"] = count + 1
	state.Storage["compact_context_tokens_before"] = before
	state.Storage["compact_context_tokens_after"] = after
	if before > 0 {
		state.Storage["compact_context_compression_ratio"] = float64(after) / float64(before)
	}
	c.tracer.Record(trace.Event{
		Kind: trace.EventCompaction,
		Turn: state.TurnCount,
		Fields: map[string]any{
			"tokens_before":    before,
			"tokens_after":     after,
			"removed_messages": removed,
		},
	})
}

// withoutPriorSnapshot strips the snapshot a previous round injected so
// repeated compactions never accumulate notices on the system prefix.
func (c *Compactor) withoutPriorSnapshot(system []llm.Message) []llm.Message {
	if c.lastSnapshot == "" {
		return system
	}
	for i, m := range system {
		if m.Text() == c.lastSnapshot {
			out := make([]llm.Message, 0, len(system)-1)
			out = append(out, system[:i]...)
			return append(out, system[i+1:]...)
		}
	}
	return system
}

func partitionMessages(messages []llm.Message) (system, conversational []llm.Message) {
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m)
		} else {
			conversational = append(conversational, m)
		}
	}
	return system, conversational
}

// truncateToolOutputs rewrites tool messages whose content exceeds the
// per-output budget, keeping the tail either by lines or by bytes.
func (c *Compactor) truncateToolOutputs(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	for i, m := range out {
		if m.Role != llm.RoleTool {
			continue
		}
		// Inline payloads (images, PDFs) are structured content and are
		// never rewritten into text.
		if _, ok := m.Content.(string); !ok {
			continue
		}
		content := m.Text()
		if len(content)/4 <= c.opts.ToolOutputBudget {
			continue
		}
		lines := strings.Split(content, "\n")
		if len(lines) > c.opts.TruncateLines {
			kept := lines[len(lines)-c.opts.TruncateLines:]
			notice := fmt.Sprintf("[... %d lines truncated ...]\n", len(lines)-c.opts.TruncateLines)
			out[i].Content = notice + strings.Join(kept, "\n")
		} else {
			keepChars := c.opts.ToolOutputBudget * 4
			notice := fmt.Sprintf("[... truncated to last ~%d tokens ...]\n", c.opts.ToolOutputBudget)
			out[i].Content = notice + content[len(content)-keepChars:]
		}
	}
	return out
}

// preserveTail walks newest to oldest accumulating messages until the
// window would exceed PreserveRatio of the conversational total. The
// newest message is kept no matter its size. When the window boundary
// lands on a tool message, the window grows backward to include the
// assistant turn that issued the call, so tool messages never lose
// their pairing.
func (c *Compactor) preserveTail(conversational []llm.Message) []llm.Message {
	budget := int(float64(c.estimator.CountMessages(conversational)) * c.opts.PreserveRatio)
	preserved := 0
	start := len(conversational)
	for i := len(conversational) - 1; i >= 0; i-- {
		t := c.estimator.CountMessage(conversational[i])
		if start < len(conversational) && preserved+t > budget {
			break
		}
		preserved += t
		start = i
	}
	for start > 0 && start < len(conversational) && conversational[start].Role == llm.RoleTool {
		start--
	}
	return conversational[start:]
}

func (c *Compactor) snapshot(ctx context.Context, dropped []llm.Message, droppedTokens, keptCount int) llm.Message {
	if c.generator != nil {
		content, err := c.generator(ctx, dropped)
		if err == nil && content != "" {
			return llm.SystemMessage(content)
		}
		if err != nil {
			c.logger.Warn("snapshot generator failed, using fallback notice", "error", err)
		}
	}
	notice := fmt.Sprintf("[Context compacted: %d messages (~%d tokens) removed. Preserved newest %d messages.]",
		len(dropped), droppedTokens, keptCount)
	return llm.SystemMessage(notice)
}

// collapseToolRuns replaces a run of three or more consecutive tool
// messages from the same tool with one summary message carrying the
// last call id.
func collapseToolRuns(msgs []llm.Message) []llm.Message {
	var out []llm.Message
	i := 0
	for i < len(msgs) {
		m := msgs[i]
		if m.Role != llm.RoleTool || m.Name == "" || !textOnly(m) {
			out = append(out, m)
			i++
			continue
		}
		j := i
		for j < len(msgs) && msgs[j].Role == llm.RoleTool && msgs[j].Name == m.Name && textOnly(msgs[j]) {
			j++
		}
		if j-i <= 2 {
			out = append(out, msgs[i:j]...)
		} else {
			last := msgs[j-1]
			summary := fmt.Sprintf("[%d consecutive %s calls collapsed]\nFirst: %s\nLast: %s",
				j-i, m.Name, previewText(m.Text()), previewText(last.Text()))
			collapsed := llm.ToolMessage(last.ToolCallID, m.Name, summary)
			out = append(out, collapsed)
		}
		i = j
	}
	return out
}

func textOnly(m llm.Message) bool {
	_, ok := m.Content.(string)
	return ok
}

func previewText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= collapsePreviewChars {
		return s
	}
	return s[:collapsePreviewChars] + "..."
}

// Package agent drives the tool-calling loop: prepare messages, run
// before-model hooks, invoke the model, run after-model hooks, dispatch
// tool calls and decide whether the conversation continues.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
	"github.com/skiffworks/skiff/pkg/skiff/tools"
	"github.com/skiffworks/skiff/pkg/skiff/trace"
)

const defaultMaxTurns = 50

// RunnerOptions configures a Runner. Zero values fall back to sane
// defaults; EnvContext is only consulted when InjectEnvironment is set.
type RunnerOptions struct {
	SystemPrompt      string
	MaxTurns          int
	Deadline          time.Duration
	InjectEnvironment bool
	EnvContext        EnvContext
}

// Runner owns one conversation with the model. It is not safe for
// concurrent use; create one Runner per run.
type Runner struct {
	client   llm.Client
	registry *tools.Registry
	pipeline *Pipeline
	tracer   trace.Tracer
	logger   *slog.Logger
	opts     RunnerOptions
	state    *State
}

func NewRunner(client llm.Client, registry *tools.Registry, pipeline *Pipeline, tracer trace.Tracer, logger *slog.Logger, opts RunnerOptions) *Runner {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = defaultMaxTurns
	}
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	if tracer == nil {
		tracer = trace.Nop{}
	}
	return &Runner{
		client:   client,
		registry: registry,
		pipeline: pipeline,
		tracer:   tracer,
		logger:   logger.With("component", "agent"),
		opts:     opts,
		state:    NewState(),
	}
}

// State exposes the run state for inspection after (or during, from
// hooks) a run.
func (r *Runner) State() *State { return r.state }

// Run executes the agent loop for a single user query and returns once
// a terminate condition fires. The returned error is non-nil only for
// unrecoverable failures; protocol-level terminations (MAX_TURNS,
// ERROR_NO_COMPLETE_TASK_CALL, ...) come back as a Result.
func (r *Runner) Run(ctx context.Context, query string) (*Result, error) {
	var deadline time.Time
	if r.opts.Deadline > 0 {
		deadline = time.Now().Add(r.opts.Deadline)
	}

	if r.opts.SystemPrompt != "" {
		r.state.Messages = append(r.state.Messages, llm.SystemMessage(r.opts.SystemPrompt))
	}
	if r.opts.InjectEnvironment {
		r.state.Messages = append(r.state.Messages, r.opts.EnvContext.Message())
	}
	r.state.Messages = append(r.state.Messages, llm.UserMessage(query))

	defs := r.registry.Definitions()
	r.logger.Info("starting run", "tools", len(defs), "max_turns", r.opts.MaxTurns)

	for r.state.TerminateReason == "" {
		if err := ctx.Err(); err != nil {
			r.state.TerminateReason = TerminateCancelled
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			r.state.TerminateReason = TerminateTimeout
			break
		}
		if r.state.TurnCount >= r.opts.MaxTurns {
			r.state.TerminateReason = TerminateMaxTurns
			break
		}
		r.state.TurnCount++
		r.tracer.Record(trace.Event{Kind: trace.EventTurnStarted, Turn: r.state.TurnCount})

		cont, err := r.turn(ctx, defs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.state.TerminateReason = TerminateCancelled
				break
			}
			r.state.TerminateReason = TerminateError
			r.logger.Error("run aborted", "turn", r.state.TurnCount, "error", err)
			r.finish()
			return r.result(), fmt.Errorf("turn %d: %w", r.state.TurnCount, err)
		}
		if !cont && r.state.TerminateReason == "" {
			// Model produced neither tool calls nor a force-continue;
			// treat the plain text as the answer.
			r.state.TerminateReason = TerminateNoCompleteCall
		}
	}

	r.finish()
	return r.result(), nil
}

// turn runs one full iteration and reports whether the loop should
// keep going.
func (r *Runner) turn(ctx context.Context, defs []llm.ToolDefinition) (bool, error) {
	before, err := r.pipeline.BeforeModel(&HookInput{
		Ctx:      ctx,
		State:    r.state,
		Messages: r.state.Messages,
	})
	if err != nil {
		return false, fmt.Errorf("before-model hooks: %w", err)
	}
	r.state.Messages = before.Messages

	resp, err := r.client.Chat(ctx, r.state.Messages, defs)
	if err != nil {
		return false, fmt.Errorf("model call: %w", err)
	}
	r.tracer.Record(trace.Event{
		Kind: trace.EventModelCalled,
		Turn: r.state.TurnCount,
		Fields: map[string]any{
			"model":         resp.ModelUsed,
			"tool_calls":    len(resp.ToolCalls),
			"finish_reason": resp.FinishReason,
		},
	})
	r.state.Usage.Add(resp.Usage)

	after, err := r.pipeline.AfterModel(&HookInput{
		Ctx:      ctx,
		State:    r.state,
		Messages: r.state.Messages,
		Response: resp,
	})
	if err != nil {
		return false, fmt.Errorf("after-model hooks: %w", err)
	}
	r.state.Messages = after.Messages
	resp = after.Response

	r.state.Messages = append(r.state.Messages, llm.AssistantMessage(resp.Content, resp.ToolCalls))

	for i := range resp.ToolCalls {
		if err := r.dispatch(ctx, &resp.ToolCalls[i]); err != nil {
			return false, err
		}
	}

	if r.state.TerminateReason != "" {
		return false, nil
	}
	return len(resp.ToolCalls) > 0 || after.ForceContinue, nil
}

// dispatch executes one tool call and appends its tool message. Tool
// failures are reported back to the model, not up the stack.
func (r *Runner) dispatch(ctx context.Context, call *llm.ToolCall) error {
	name := call.Function.Name
	r.tracer.Record(trace.Event{
		Kind:   trace.EventToolCalled,
		Turn:   r.state.TurnCount,
		Fields: map[string]any{"tool": name, "call_id": call.ID},
	})
	r.logger.Debug("dispatching tool", "tool", name, "call_id", call.ID)

	result := r.registry.Execute(ctx, *call)

	after, err := r.pipeline.AfterTool(&HookInput{
		Ctx:        ctx,
		State:      r.state,
		Messages:   r.state.Messages,
		ToolCall:   call,
		ToolOutput: &result,
	})
	if err != nil {
		return fmt.Errorf("after-tool hooks for %s: %w", name, err)
	}
	if after.ToolOutput != nil {
		result = *after.ToolOutput
	}
	r.state.Messages = after.Messages

	fields := map[string]any{"tool": name, "call_id": call.ID, "is_error": result.IsError()}
	if result.IsError() {
		fields["error_type"] = result.Error.Type
		r.logger.Warn("tool failed", "tool", name, "error_type", result.Error.Type, "error", result.Error.Message)
	}
	r.tracer.Record(trace.Event{Kind: trace.EventToolResult, Turn: r.state.TurnCount, Fields: fields})

	r.state.Messages = append(r.state.Messages, toolResultMessage(call.ID, name, result))
	return nil
}

// toolResultMessage serializes a tool result into the conversation.
// Binary payloads (images, audio, PDF) travel as structured inline
// parts so the model receives the actual data, not a text placeholder.
func toolResultMessage(callID, name string, result tools.Result) llm.Message {
	if inline, ok := result.LLMContent.(llm.InlineData); ok {
		msg := llm.ToolMessage(callID, name, "")
		msg.Content = []llm.ContentPart{llm.InlinePart(inline.MIMEType, inline.Data)}
		return msg
	}
	return llm.ToolMessage(callID, name, result.ContentText())
}

func (r *Runner) finish() {
	r.tracer.Record(trace.Event{
		Kind: trace.EventTerminated,
		Turn: r.state.TurnCount,
		Fields: map[string]any{
			"reason": string(r.state.TerminateReason),
			"turns":  r.state.TurnCount,
		},
	})
	r.logger.Info("run finished", "reason", r.state.TerminateReason, "turns", r.state.TurnCount)
}

func (r *Runner) result() *Result {
	final := r.state.FinalResult
	if final == "" {
		// Fall back to the last assistant text in the conversation.
		for i := len(r.state.Messages) - 1; i >= 0; i-- {
			if r.state.Messages[i].Role == llm.RoleAssistant && r.state.Messages[i].Text() != "" {
				final = r.state.Messages[i].Text()
				break
			}
		}
	}
	return &Result{
		FinalResult:     final,
		TerminateReason: r.state.TerminateReason,
		Turns:           r.state.TurnCount,
		Usage:           r.state.Usage,
		Messages:        r.state.Messages,
	}
}

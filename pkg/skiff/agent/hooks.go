package agent

import (
	"context"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
	"github.com/skiffworks/skiff/pkg/skiff/tools"
)

// HookInput is the snapshot handed to each middleware hook. Response is
// nil for before-model hooks; ToolOutput is non-nil only for after-tool
// hooks.
type HookInput struct {
	Ctx        context.Context
	State      *State
	Messages   []llm.Message
	Response   *llm.Response
	ToolCall   *llm.ToolCall
	ToolOutput *tools.Result
}

// HookResult carries the mutations a hook wants applied. Nil pointer
// fields mean "unchanged"; Messages uses the Changed flag because a nil
// slice is a legal replacement value.
type HookResult struct {
	MessagesChanged bool
	Messages        []llm.Message
	Response        *llm.Response
	ToolOutput      *tools.Result
	ForceContinue   bool
}

// NoChanges is the result of a hook that observed without mutating.
func NoChanges() HookResult { return HookResult{} }

// WithMessages builds a result that replaces the message list.
func WithMessages(msgs []llm.Message) HookResult {
	return HookResult{MessagesChanged: true, Messages: msgs}
}

// Middleware hooks into the loop at three extension points. Any nil
// func is skipped.
type Middleware struct {
	Name        string
	BeforeModel func(in *HookInput) (HookResult, error)
	AfterModel  func(in *HookInput) (HookResult, error)
	AfterTool   func(in *HookInput) (HookResult, error)
}

// Pipeline applies middlewares in registration order, feeding each
// hook's mutations into the next: last write wins per field, and
// ForceContinue is an OR across the whole chain.
type Pipeline struct {
	middlewares []Middleware
}

func NewPipeline(mws ...Middleware) *Pipeline {
	return &Pipeline{middlewares: mws}
}

func (p *Pipeline) Register(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
}

type pipelineOutcome struct {
	Messages      []llm.Message
	Response      *llm.Response
	ToolOutput    *tools.Result
	ForceContinue bool
}

func (p *Pipeline) run(in *HookInput, pick func(Middleware) func(*HookInput) (HookResult, error)) (pipelineOutcome, error) {
	out := pipelineOutcome{
		Messages:   in.Messages,
		Response:   in.Response,
		ToolOutput: in.ToolOutput,
	}
	for _, mw := range p.middlewares {
		hook := pick(mw)
		if hook == nil {
			continue
		}
		next := &HookInput{
			Ctx:        in.Ctx,
			State:      in.State,
			Messages:   out.Messages,
			Response:   out.Response,
			ToolCall:   in.ToolCall,
			ToolOutput: out.ToolOutput,
		}
		res, err := hook(next)
		if err != nil {
			return out, err
		}
		if res.MessagesChanged {
			out.Messages = res.Messages
		}
		if res.Response != nil {
			out.Response = res.Response
		}
		if res.ToolOutput != nil {
			out.ToolOutput = res.ToolOutput
		}
		out.ForceContinue = out.ForceContinue || res.ForceContinue
	}
	return out, nil
}

func (p *Pipeline) BeforeModel(in *HookInput) (pipelineOutcome, error) {
	return p.run(in, func(mw Middleware) func(*HookInput) (HookResult, error) { return mw.BeforeModel })
}

func (p *Pipeline) AfterModel(in *HookInput) (pipelineOutcome, error) {
	return p.run(in, func(mw Middleware) func(*HookInput) (HookResult, error) { return mw.AfterModel })
}

func (p *Pipeline) AfterTool(in *HookInput) (pipelineOutcome, error) {
	return p.run(in, func(mw Middleware) func(*HookInput) (HookResult, error) { return mw.AfterTool })
}

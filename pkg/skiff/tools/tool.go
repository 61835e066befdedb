package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

// Handler executes one tool invocation. Handlers are total: they return a
// Result even on failure and never panic on well-formed input. Panics on
// malformed input are recovered by the executor.
type Handler func(ctx context.Context, args map[string]any) Result

// Tool pairs a chat-completions definition with its handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema for the arguments object
	Handler     Handler
}

// MakeDefinition builds the wire-format tool definition.
func MakeDefinition(name, description string, parameters map[string]any) llm.ToolDefinition {
	paramsJSON, _ := json.Marshal(parameters)
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        name,
			Description: description,
			Parameters:  paramsJSON,
		},
	}
}

// Registry holds the registered tools and executes calls against them.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*registeredTool
	order     []string
	defsCache []llm.ToolDefinition
	logger    *slog.Logger
}

type registeredTool struct {
	tool   Tool
	def    llm.ToolDefinition
	schema *jsonschema.Schema // nil when the declared schema does not compile
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*registeredTool),
		logger: logger.With("component", "tools"),
	}
}

// Register adds or replaces a tool. The declared parameter schema is
// compiled once; arguments are validated against it on every call.
func (r *Registry) Register(t Tool) {
	def := MakeDefinition(t.Name, t.Description, t.Parameters)

	var compiled *jsonschema.Schema
	if len(t.Parameters) > 0 {
		schemaJSON, err := json.Marshal(t.Parameters)
		if err == nil {
			compiled, err = jsonschema.CompileString(t.Name+".json", string(schemaJSON))
		}
		if err != nil {
			r.logger.Warn("tool schema did not compile, skipping validation",
				"tool", t.Name, "err", err)
			compiled = nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = &registeredTool{tool: t, def: def, schema: compiled}
	r.defsCache = nil
}

// Definitions returns the wire definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.defsCache == nil {
		defs := make([]llm.ToolDefinition, 0, len(r.order))
		for _, name := range r.order {
			defs = append(defs, r.tools[name].def)
		}
		r.defsCache = defs
	}
	return r.defsCache
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Describe returns name and description for every registered tool in
// registration order.
func (r *Registry) Describe() [][2]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][2]string, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, [2]string{name, r.tools[name].tool.Description})
	}
	return out
}

// Execute runs one model-requested tool call: resolve the tool, parse and
// validate arguments, invoke the handler with panic recovery. Failures are
// returned as error-carrying Results, never as Go errors, so the loop can
// always hand something back to the model.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) Result {
	name := call.Function.Name

	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return ErrorResult(ErrInvalidParameter, "unknown tool: %s", name)
	}

	args, err := parseArgs(call.Function.Arguments)
	if err != nil {
		return ErrorResult(ErrInvalidParameter, "invalid arguments for %s: %v", name, err)
	}

	if reg.schema != nil {
		if err := reg.schema.Validate(anyMap(args)); err != nil {
			return ErrorResult(ErrInvalidParameter, "arguments for %s failed validation: %v", name, err)
		}
	}

	return r.invoke(ctx, reg, args)
}

func (r *Registry) invoke(ctx context.Context, reg *registeredTool, args map[string]any) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked",
				"tool", reg.tool.Name,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result = ErrorResult(ErrExecutionError, "%s failed: %v", reg.tool.Name, rec)
		}
	}()

	r.logger.Debug("executing tool", "tool", reg.tool.Name)
	result = reg.tool.Handler(ctx, args)
	if result.IsError() {
		r.logger.Debug("tool returned error",
			"tool", reg.tool.Name,
			"error_type", result.Error.Type,
			"message", result.Error.Message,
		)
	}
	return result
}

// parseArgs decodes the serialized JSON arguments. An empty string means
// no arguments.
func parseArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("parsing arguments JSON: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// anyMap converts for schema validation, which wants the interface form
// produced by encoding/json.
func anyMap(m map[string]any) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

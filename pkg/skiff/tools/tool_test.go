package tools

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registryCall(name, args string) llm.ToolCall {
	return llm.ToolCall{
		ID:   "call-1",
		Type: "function",
		Function: llm.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "Echoes the input back.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return TextResult("echo: " + strArg(args, "text"))
		},
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register(echoTool())

	res := r.Execute(context.Background(), registryCall("echo", `{"text":"hi"}`))
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if res.ContentText() != "echo: hi" {
		t.Errorf("got %q", res.ContentText())
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry(quietLogger())
	res := r.Execute(context.Background(), registryCall("nope", "{}"))
	if !res.IsError() || res.Error.Type != ErrInvalidParameter {
		t.Fatalf("expected INVALID_PARAMETER, got %+v", res.Error)
	}
	if !strings.Contains(res.Error.Message, "unknown tool: nope") {
		t.Errorf("message wrong: %q", res.Error.Message)
	}
}

func TestRegistryMalformedArgumentsJSON(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register(echoTool())
	res := r.Execute(context.Background(), registryCall("echo", `{"text":`))
	if !res.IsError() || res.Error.Type != ErrInvalidParameter {
		t.Fatalf("expected INVALID_PARAMETER, got %+v", res.Error)
	}
}

func TestRegistrySchemaValidation(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register(echoTool())

	res := r.Execute(context.Background(), registryCall("echo", `{}`))
	if !res.IsError() || res.Error.Type != ErrInvalidParameter {
		t.Fatalf("expected validation failure, got %+v", res.Error)
	}
	if !strings.Contains(res.Error.Message, "failed validation") {
		t.Errorf("message wrong: %q", res.Error.Message)
	}
}

func TestRegistryEmptyArguments(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register(Tool{
		Name:        "noop",
		Description: "Takes no arguments.",
		Handler: func(ctx context.Context, args map[string]any) Result {
			return TextResult("ok")
		},
	})
	res := r.Execute(context.Background(), registryCall("noop", ""))
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
}

func TestRegistryRecoversPanic(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register(Tool{
		Name:        "boom",
		Description: "Panics.",
		Handler: func(ctx context.Context, args map[string]any) Result {
			panic("kaput")
		},
	})
	res := r.Execute(context.Background(), registryCall("boom", "{}"))
	if !res.IsError() || res.Error.Type != ErrExecutionError {
		t.Fatalf("expected EXECUTION_ERROR, got %+v", res.Error)
	}
	if !strings.Contains(res.Error.Message, "kaput") {
		t.Errorf("panic value lost: %q", res.Error.Message)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	r := NewRegistry(quietLogger())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		tool := echoTool()
		tool.Name = name
		r.Register(tool)
	}
	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	got := []string{defs[0].Function.Name, defs[1].Function.Name, defs[2].Function.Name}
	want := []string{"zeta", "alpha", "mid"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("registration order lost: got %v, want %v", got, want)
		}
	}

	names := r.Names()
	if names[0] != "alpha" || names[2] != "zeta" {
		t.Errorf("Names not sorted: %v", names)
	}
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register(echoTool())
	replacement := echoTool()
	replacement.Handler = func(ctx context.Context, args map[string]any) Result {
		return TextResult("v2")
	}
	r.Register(replacement)

	if len(r.Definitions()) != 1 {
		t.Fatalf("re-registration duplicated the tool")
	}
	res := r.Execute(context.Background(), registryCall("echo", `{"text":"x"}`))
	if res.ContentText() != "v2" {
		t.Errorf("old handler still active: %q", res.ContentText())
	}
}

//go:build !windows

package tools

import (
	"context"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"
)

func shellOptions(t *testing.T) Options {
	t.Helper()
	o := Options{WorkDir: t.TempDir()}
	o.normalize()
	return o
}

func TestRunShellCommandOutput(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{
		"command": "echo hello; echo world >&2",
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "hello") || !strings.Contains(text, "world") {
		t.Errorf("stdout and stderr must be merged: %q", text)
	}
	if !strings.HasPrefix(text, "Output: ") {
		t.Errorf("llm content must lead with the output section: %q", text)
	}
}

func TestRunShellCommandNonZeroExit(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{
		"command": "exit 3",
	})
	if res.IsError() {
		t.Fatalf("a non-zero exit is not a tool error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "Exit Code: 3") {
		t.Errorf("exit code missing: %q", res.ContentText())
	}
}

func TestRunShellCommandEmpty(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{"command": "   "})
	if !res.IsError() || res.Error.Type != ErrInvalidCommand {
		t.Fatalf("expected INVALID_COMMAND, got %+v", res.Error)
	}
}

func TestRunShellCommandMissingDir(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{
		"command":  "true",
		"dir_path": "no/such/dir",
	})
	if !res.IsError() || res.Error.Type != ErrDirectoryNotFound {
		t.Fatalf("expected DIRECTORY_NOT_FOUND, got %+v", res.Error)
	}
}

func TestMissingShellReportsShellNotFound(t *testing.T) {
	msg, notFound := startError(exec.ErrNotFound)
	if !notFound {
		t.Fatal("exec.ErrNotFound must classify as a missing shell")
	}
	if !strings.Contains(msg, "Command not found") {
		t.Errorf("unexpected message: %q", msg)
	}

	var out shellOutcome
	out.errorMessage, out.shellMissing = startError(exec.ErrNotFound)
	res := formatShellResult("true", time.Second, out)
	if !res.IsError() || res.Error.Type != ErrShellNotFound {
		t.Fatalf("expected SHELL_NOT_FOUND, got %+v", res.Error)
	}

	// Other start failures keep the generic execution error type.
	generic := shellOutcome{errorMessage: "boom"}
	res = formatShellResult("true", time.Second, generic)
	if !res.IsError() || res.Error.Type != ErrShellExecuteError {
		t.Fatalf("expected SHELL_EXECUTE_ERROR, got %+v", res.Error)
	}
}

func TestRunShellCommandTimeout(t *testing.T) {
	o := shellOptions(t)
	start := time.Now()
	res := runShellCommand(context.Background(), o, map[string]any{
		"command":    "sleep 30",
		"timeout_ms": 300,
	})
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("timeout did not kill the process group in time: %v", elapsed)
	}
	if !res.IsError() || res.Error.Type != ErrTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "automatically cancelled because it exceeded the timeout") {
		t.Errorf("timeout notice missing: %q", res.ContentText())
	}
}

func TestRunShellCommandKillsWholeGroup(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{
		// The child spawns a grandchild; both share the process group.
		"command":    "sh -c 'sleep 30' & sleep 30",
		"timeout_ms": 300,
	})
	if !res.IsError() || res.Error.Type != ErrTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", res.Error)
	}
}

func TestRunShellCommandBackground(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{
		"command":       "sleep 5",
		"is_background": true,
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "Command moved to background (PID: ") ||
		!strings.Contains(text, "Output hidden.") {
		t.Errorf("unexpected background message: %q", text)
	}
	pid, ok := res.Data["pid"].(int)
	if !ok || pid <= 0 {
		t.Fatalf("expected a pid in data, got %v", res.Data["pid"])
	}
	// Don't leak the sleep beyond the test.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func TestRunShellCommandBackgroundEarlyExit(t *testing.T) {
	o := shellOptions(t)
	res := runShellCommand(context.Background(), o, map[string]any{
		"command":       "echo quick; exit 2",
		"is_background": true,
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if strings.Contains(text, "moved to background") {
		t.Errorf("immediately-exiting command must not be reported as background: %q", text)
	}
	if !strings.Contains(text, "quick") || !strings.Contains(text, "Exit Code: 2") {
		t.Errorf("early-exit output missing: %q", text)
	}
}

func TestRunShellCommandCancelledContext(t *testing.T) {
	o := shellOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	res := runShellCommand(ctx, o, map[string]any{"command": "sleep 30"})
	if !strings.Contains(res.ContentText(), "cancelled by user") {
		t.Errorf("cancellation notice missing: %q", res.ContentText())
	}
	if res.IsError() && res.Error.Type == ErrTimeout {
		t.Error("user cancellation must not be reported as a timeout")
	}
}

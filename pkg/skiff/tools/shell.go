package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultShellTimeout  = 300 * time.Second
	outputUpdateInterval = time.Second
	backgroundDelay      = 200 * time.Millisecond
	termGracePeriod      = 500 * time.Millisecond
	readerJoinTimeout    = 5 * time.Second
)

func registerShellTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "run_shell_command",
		Description: "Executes a shell command (bash on POSIX, PowerShell on Windows) with " +
			"merged stdout/stderr. Foreground commands stream output and are killed on " +
			"timeout; background commands return a PID and keep running.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The exact command to execute",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Brief description of the command for the user",
				},
				"dir_path": map[string]any{
					"type":        "string",
					"description": "Directory to run the command in (defaults to the working directory)",
				},
				"is_background": map[string]any{
					"type":        "boolean",
					"description": "Run the command in the background and return immediately",
				},
				"timeout_ms": map[string]any{
					"type":        "integer",
					"description": "Timeout in milliseconds (default 300000; 0 disables the timeout)",
				},
			},
			"required": []string{"command"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return runShellCommand(ctx, o, args)
		},
	})
}

// shellOutcome accumulates everything observed about one command run.
type shellOutcome struct {
	output           string
	exitCode         int
	exited           bool
	errorMessage     string
	shellMissing     bool
	signalName       string
	pid              int
	backgrounded     bool
	aborted          bool
	timeoutTriggered bool
}

func runShellCommand(ctx context.Context, o Options, args map[string]any) Result {
	command := strArg(args, "command")
	if strings.TrimSpace(command) == "" {
		return ErrorResult(ErrInvalidCommand, "Command cannot be empty.")
	}

	cwd := o.WorkDir
	if dp := strArg(args, "dir_path"); dp != "" {
		cwd = resolvePath(dp, o.WorkDir)
		info, err := os.Stat(cwd)
		if err != nil {
			return ErrorResult(ErrDirectoryNotFound, "Directory not found: %s", dp)
		}
		if !info.IsDir() {
			return ErrorResult(ErrNotADirectory, "Path is not a directory: %s", dp)
		}
	}

	timeout := o.ShellTimeout
	if hasArg(args, "timeout_ms") {
		timeout = time.Duration(intArg(args, "timeout_ms", 0)) * time.Millisecond
	}

	var outcome shellOutcome
	if boolArg(args, "is_background", false) {
		outcome = runBackground(command, cwd)
	} else {
		outcome = runForeground(ctx, o, command, cwd, timeout)
	}
	return formatShellResult(command, timeout, outcome)
}

func runBackground(command, cwd string) shellOutcome {
	var out shellOutcome
	cmd := shellCommand(command)
	cmd.Dir = cwd

	var buf syncBuffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	setDetachedSession(cmd)

	if err := cmd.Start(); err != nil {
		out.errorMessage, out.shellMissing = startError(err)
		return out
	}
	out.pid = cmd.Process.Pid
	out.backgrounded = true

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// Sanity wait: a command that dies immediately is reported as a
	// normal foreground failure instead of a phantom background job.
	select {
	case err := <-done:
		out.backgrounded = false
		out.output = buf.String()
		out.exitCode, out.signalName = exitStatus(err)
		out.exited = true
	case <-time.After(backgroundDelay):
		// Still running: hand the PID back and deliberately leak the
		// process handle. The reaper goroutine above collects it if the
		// runtime outlives the job.
	}
	return out
}

func runForeground(ctx context.Context, o Options, command, cwd string, timeout time.Duration) shellOutcome {
	var out shellOutcome
	cmd := shellCommand(command)
	cmd.Dir = cwd

	pr, pw, err := os.Pipe()
	if err != nil {
		out.errorMessage = fmt.Sprintf("creating output pipe: %v", err)
		return out
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	setNewProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		out.errorMessage, out.shellMissing = startError(err)
		return out
	}
	out.pid = cmd.Process.Pid
	pw.Close()

	var buf syncBuffer
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer pr.Close()
		chunk := make([]byte, 4096)
		lastUpdate := time.Now()
		for {
			n, err := pr.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				if o.OnShellOutput != nil && time.Since(lastUpdate) > outputUpdateInterval {
					o.OnShellOutput(buf.String())
					lastUpdate = time.Now()
				}
			}
			if err != nil {
				return
			}
		}
	}()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	var waitErr error
	select {
	case waitErr = <-waitDone:
		out.exited = true
	case <-timeoutCh:
		out.aborted = true
		out.timeoutTriggered = true
		killProcessGroup(out.pid)
		waitErr = <-waitDone
		out.exited = true
	case <-ctx.Done():
		out.aborted = true
		killProcessGroup(out.pid)
		waitErr = <-waitDone
		out.exited = true
	}

	select {
	case <-readerDone:
	case <-time.After(readerJoinTimeout):
		// A grandchild may still hold the pipe open; stop waiting and
		// report what we have.
	}

	out.output = buf.String()
	out.exitCode, out.signalName = exitStatus(waitErr)
	return out
}

// startError classifies a cmd.Start failure. notFound is set when the
// shell binary itself is absent so the result can carry the dedicated
// error type instead of a generic execution failure.
func startError(err error) (msg string, notFound bool) {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Sprintf("Command not found: %s", shellBinary()), true
	}
	if errors.Is(err, os.ErrPermission) {
		return "Permission denied executing command", false
	}
	return err.Error(), false
}

func formatShellResult(command string, timeout time.Duration, out shellOutcome) Result {
	if out.backgrounded {
		msg := fmt.Sprintf("Command moved to background (PID: %d). Output hidden.", out.pid)
		res := DualResult(msg, msg)
		res.Data = map[string]any{
			"pid":          out.pid,
			"command":      command,
			"backgrounded": true,
		}
		return res
	}

	var llmParts []string
	if out.aborted {
		if out.timeoutTriggered {
			llmParts = append(llmParts, fmt.Sprintf(
				"Command was automatically cancelled because it exceeded the timeout of %.1f minutes without output.",
				timeout.Minutes()))
		} else {
			llmParts = append(llmParts, "Command was cancelled by user before it could complete.")
		}
		if strings.TrimSpace(out.output) != "" {
			llmParts = append(llmParts, "Below is the output before it was cancelled:\n"+out.output)
		} else {
			llmParts = append(llmParts, "There was no output before it was cancelled.")
		}
	} else {
		text := out.output
		if text == "" {
			text = "(empty)"
		}
		llmParts = append(llmParts, "Output: "+text)
		if out.errorMessage != "" {
			llmParts = append(llmParts, "Error: "+out.errorMessage)
		}
		if out.exited && out.exitCode != 0 {
			llmParts = append(llmParts, fmt.Sprintf("Exit Code: %d", out.exitCode))
		}
		if out.signalName != "" {
			llmParts = append(llmParts, "Signal: "+out.signalName)
		}
		if out.pid != 0 {
			llmParts = append(llmParts, fmt.Sprintf("Process Group PGID: %d", out.pid))
		}
	}

	var display string
	switch {
	case strings.TrimSpace(out.output) != "":
		display = out.output
	case out.aborted && out.timeoutTriggered:
		display = fmt.Sprintf("Command timed out after %.1f minutes.", timeout.Minutes())
	case out.aborted:
		display = "Command cancelled by user."
	case out.signalName != "":
		display = "Command terminated by signal: " + out.signalName
	case out.errorMessage != "":
		display = "Command failed: " + out.errorMessage
	case out.exited && out.exitCode != 0:
		display = fmt.Sprintf("Command exited with code: %d", out.exitCode)
	default:
		display = "(empty)"
	}

	res := DualResult(strings.Join(llmParts, "\n"), display)
	if out.aborted && out.timeoutTriggered {
		res.Error = &ToolError{
			Message: fmt.Sprintf("Command exceeded timeout of %s", timeout),
			Type:    ErrTimeout,
		}
	} else if out.errorMessage != "" {
		errType := ErrShellExecuteError
		if out.shellMissing {
			errType = ErrShellNotFound
		}
		res.Error = &ToolError{Message: out.errorMessage, Type: errType}
	}
	return res
}

// syncBuffer is a strings.Builder safe for writer/reader races between the
// stream goroutine and the result assembly.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
	"time"
)

func shellBinary() string { return "bash" }

func shellCommand(command string) *exec.Cmd {
	return exec.Command("bash", "-c", command)
}

// setNewProcessGroup puts the child in its own process group so timeout
// kills reach its descendants.
func setNewProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// setDetachedSession starts the child in a new session for background jobs.
func setDetachedSession(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// killProcessGroup terminates the whole group: SIGTERM first, then SIGKILL
// after a short grace period.
func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return
	}
	time.Sleep(termGracePeriod)
	syscall.Kill(-pid, syscall.SIGKILL)
}

// exitStatus extracts the exit code and, when the process died on a
// signal, the signal name.
func exitStatus(waitErr error) (int, string) {
	if waitErr == nil {
		return 0, ""
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return -1, ""
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.ExitCode(), ""
	}
	if status.Signaled() {
		return exitErr.ExitCode(), status.Signal().String()
	}
	return status.ExitStatus(), ""
}

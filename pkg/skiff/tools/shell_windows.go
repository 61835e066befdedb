//go:build windows

package tools

import (
	"os"
	"os/exec"
	"syscall"
)

func shellBinary() string { return "powershell.exe" }

func shellCommand(command string) *exec.Cmd {
	return exec.Command("powershell.exe", "-NoProfile", "-Command", command)
}

func setNewProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func setDetachedSession(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// killProcessGroup has no graceful phase on Windows; the process tree is
// killed outright.
func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		proc.Kill()
	}
}

func exitStatus(waitErr error) (int, string) {
	if waitErr == nil {
		return 0, ""
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode(), ""
	}
	return -1, ""
}

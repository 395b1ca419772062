//go:build !windows

package process

import "syscall"

// KillTree kills a browser process and its children by sending SIGKILL to
// the process group (negative PID). Non-positive PIDs are ignored.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	// Best effort: the launcher's own Kill runs first.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

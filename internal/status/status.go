// Package status converts OS process wait-statuses into shell exit codes.
package status

import (
	"os"
	"syscall"
)

// Classify converts a raw POSIX wait status into a shell exit code:
// normal exit yields its code, death by signal yields 128+signal, and
// any other outcome (stopped, continued — callers should not reach here
// for those) yields 1.
func Classify(ws syscall.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return 1
	}
}

// FromProcessState classifies an *os.ProcessState the way Go's os/exec
// reports completed commands. Used for stages the shell waits on via
// exec.Cmd.Wait rather than a raw waitpid.
func FromProcessState(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		return Classify(ws)
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

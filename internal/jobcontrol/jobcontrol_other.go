//go:build !unix

package jobcontrol

import (
	"fmt"
	"os/exec"
)

// Supported reports whether this platform models process groups and
// terminal ownership. On non-POSIX platforms job control collapses to
// simple background/foreground bookkeeping without real process groups
// (spec §4.C / §9 cross-platform collapse).
const Supported = false

func SetProcessGroup(pid, pgid int) error { return nil }

func ProcessGroupID(pid int) (int, error) { return pid, nil }

func SendContinueToGroup(pgid int) error { return nil }

func SendHangupAndContinue(pgid int) {}

// PrepareCommand is a no-op: this platform has no process groups, so the
// shell executor falls back to exec.Cmd.Wait() directly.
func PrepareCommand(cmd *exec.Cmd, pgid int) {}

// WaitForExit is not used on this platform; callers use cmd.Wait().
func WaitForExit(pid int) (int, error) {
	return 0, fmt.Errorf("jobcontrol: WaitForExit unsupported on this platform")
}

// WaitForPid is not used on this platform: process.Wait() from os/exec
// already returns full exit-status information without needing a
// stop-aware wait loop, since there is no job-control stop/continue here.
func WaitForPid(pid int) (WaitOutcome, error) {
	return WaitOutcome{}, fmt.Errorf("jobcontrol: WaitForPid unsupported on this platform")
}

// ForegroundTerminalGuard is an inert placeholder: there is no
// controlling-terminal handoff to perform.
type ForegroundTerminalGuard struct{}

func AcquireForeground(targetPgid int) (*ForegroundTerminalGuard, error) {
	return &ForegroundTerminalGuard{}, nil
}

func (g *ForegroundTerminalGuard) Release() {}

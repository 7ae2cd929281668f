//go:build unix

package jobcontrol

import (
	"fmt"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/kaliedev/jsh/internal/status"
)

// Supported reports whether this platform models process groups and
// terminal ownership.
const Supported = true

// SetProcessGroup places pid into pgid (pgid == 0 means "make pid its own
// leader"). Retries on EINTR. A race with the child's own setpgid call —
// or the child already having exited — is treated as success so neither
// side can leave the group unset by losing the race.
func SetProcessGroup(pid, pgid int) error {
	for {
		err := unix.Setpgid(pid, pgid)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EACCES || err == unix.ESRCH {
			return nil
		}
		return fmt.Errorf("setpgid(%d, %d): %w", pid, pgid, err)
	}
}

// ProcessGroupID returns the process group id of pid.
func ProcessGroupID(pid int) (int, error) {
	for {
		pgid, err := unix.Getpgid(pid)
		if err == nil {
			return pgid, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, fmt.Errorf("getpgid(%d): %w", pid, err)
	}
}

// SendContinueToGroup broadcasts SIGCONT to every process in pgid.
func SendContinueToGroup(pgid int) error {
	if pgid <= 0 {
		return fmt.Errorf("invalid process group id %d", pgid)
	}
	for {
		err := unix.Kill(-pgid, unix.SIGCONT)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return fmt.Errorf("kill(-%d, SIGCONT): %w", pgid, err)
	}
}

// SendHangupAndContinue is used at shutdown to best-effort terminate
// every job still in the table (spec §4.I).
func SendHangupAndContinue(pgid int) {
	if pgid <= 0 {
		return
	}
	unix.Kill(-pgid, unix.SIGHUP)
	unix.Kill(-pgid, unix.SIGCONT)
}

// WaitForPid blocks for pid to exit or stop, with untraced semantics so a
// stop signal surfaces instead of blocking forever. Retries on EINTR.
func WaitForPid(pid int) (WaitOutcome, error) {
	var ws syscall.WaitStatus
	for {
		_, err := syscall.Wait4(pid, &ws, syscall.WUNTRACED, nil)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return WaitOutcome{}, err
		}
		if ws.Stopped() {
			return WaitOutcome{Stopped: true}, nil
		}
		if ws.Exited() || ws.Signaled() {
			return WaitOutcome{Exited: true, Code: status.Classify(ws)}, nil
		}
		// continued or other transient notification: keep waiting
	}
}

// PrepareCommand arranges for cmd's child to join process group pgid
// (0 meaning "become its own leader"), mirroring the Rust original's
// pre_exec hook. Call before cmd.Start().
func PrepareCommand(cmd *exec.Cmd, pgid int) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
}

// WaitForExit blocks until pid terminates, ignoring stops (mirroring
// std::process::Child::try_wait's behavior, which the original's
// background job reaper relies on: a job that is later suspended by an
// external signal is simply not observed as stopped). Nothing in this
// module calls it: background job monitors use the stop-aware WaitForPid.
func WaitForExit(pid int) (int, error) {
	var ws syscall.WaitStatus
	for {
		_, err := syscall.Wait4(pid, &ws, 0, nil)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return 0, err
		}
		if ws.Exited() || ws.Signaled() {
			return status.Classify(ws), nil
		}
	}
}

// ForegroundTerminalGuard hands the controlling terminal to a target
// process group for the lifetime of a foreground pipeline, restoring it
// to the shell's own group on release. Release is safe to call multiple
// times and on every exit path including errors.
type ForegroundTerminalGuard struct {
	ttyFd     int
	active    bool
	shellPgid int
}

// AcquireForeground transfers terminal ownership to targetPgid if stdin is
// a terminal; otherwise it returns an inert guard. SIGTTOU is ignored for
// the duration of the handoff so the shell does not stop itself via its
// own tcsetpgrp call.
func AcquireForeground(targetPgid int) (*ForegroundTerminalGuard, error) {
	g := &ForegroundTerminalGuard{ttyFd: -1}

	if !term.IsTerminal(unix.Stdin) {
		return g, nil
	}

	g.shellPgid = unix.Getpgrp()
	g.ttyFd = unix.Stdin

	if err := setTerminalForeground(g.ttyFd, targetPgid); err != nil {
		return g, err
	}
	g.active = true
	return g, nil
}

// Release restores terminal ownership to the shell's own process group.
func (g *ForegroundTerminalGuard) Release() {
	if g == nil || !g.active {
		return
	}
	setTerminalForeground(g.ttyFd, g.shellPgid)
	g.active = false
}

func setTerminalForeground(fd, pgid int) error {
	if pgid <= 0 {
		return fmt.Errorf("invalid process group id %d", pgid)
	}

	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)

	for {
		err := unix.IoctlSetInt(fd, unix.TIOCSPGRP, pgid)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return fmt.Errorf("tcsetpgrp: %w", err)
	}
}

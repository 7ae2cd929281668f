// Package shellsignal installs the process-wide signal policy described in
// spec.md §4.I, grounded on the original's SignalIgnoreGuard
// (original_source/src/job_control.rs) translated from RAII guards into a
// Policy value with explicit Install/Stop methods (plus the package-level
// Shutdown sweep), since Go has no destructors to rely on. shellsignal_unix.go carries the POSIX-only
// dispositions (TSTP/QUIT/PIPE); shellsignal_other.go collapses them to
// no-ops, mirroring internal/jobcontrol's own platform split.
package shellsignal

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/kaliedev/jsh/internal/jobcontrol"
	"github.com/kaliedev/jsh/internal/jobs"
)

// Policy holds the running state of the shell's installed signal handlers.
// Zero value is unusable; use New.
type Policy struct {
	out       io.Writer
	isRawMode func() bool

	mu      sync.Mutex
	sigCh   chan os.Signal
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New returns a Policy that writes its interrupt newline to out and
// consults isRawMode to decide whether the line editor already handled the
// interrupt as a key event. isRawMode may be nil, which is treated as
// "never in raw mode" (always print the newline).
func New(out io.Writer, isRawMode func() bool) *Policy {
	if isRawMode == nil {
		isRawMode = func() bool { return false }
	}
	return &Policy{out: out, isRawMode: isRawMode}
}

// Install ignores TSTP, QUIT, and PIPE at the shell level (platform split
// in ignoreShellLevelSignals) and starts the SIGINT handler described in
// spec.md §4.I. Safe to call once; a second call is a no-op.
func (p *Policy) Install() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ignoreShellLevelSignals()

	p.sigCh = make(chan os.Signal, 1)
	p.stopCh = make(chan struct{})
	signal.Notify(p.sigCh, os.Interrupt)

	p.wg.Add(1)
	go p.run()
}

func (p *Policy) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.sigCh:
			if !p.isRawMode() {
				fmt.Fprintln(p.out)
			}
		case <-p.stopCh:
			return
		}
	}
}

// Stop reverts SIGINT handling to the Go runtime default and stops the
// handler goroutine. Does not un-ignore TSTP/QUIT/PIPE: those remain
// ignored for the shell's own lifetime per spec.md §4.I.
func (p *Policy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	signal.Stop(p.sigCh)
	close(p.stopCh)
	p.wg.Wait()
	p.started = false
}

// Shutdown walks table and best-effort hangs up every non-Done job's
// process group, per spec.md §4.I's shutdown sweep. Errors are ignored.
func Shutdown(table *jobs.Table) {
	if !jobcontrol.Supported {
		return
	}
	for _, job := range table.SortedIter() {
		if job.Status == jobs.Done {
			continue
		}
		jobcontrol.SendHangupAndContinue(job.PGID)
	}
}

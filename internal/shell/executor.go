package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/kaliedev/jsh/internal/jobcontrol"
	"github.com/kaliedev/jsh/internal/jobs"
	"github.com/kaliedev/jsh/internal/redirect"
	"github.com/kaliedev/jsh/internal/shellsignal"
	"github.com/kaliedev/jsh/internal/status"
)

// Outcome is what a pipeline, command, or builtin hands back up the call
// chain: either "keep going" with an exit code, or "the shell should
// terminate" with one (spec.md §4.E's Continue/Exit contract).
type Outcome struct {
	Exit bool
	Code int
}

// Continue wraps a normal, non-terminating exit code.
func Continue(code int) Outcome { return Outcome{Code: code} }

// ExitShell wraps the exit code requested by the `exit` builtin.
func ExitShell(code int) Outcome { return Outcome{Exit: true, Code: code} }

// BuiltinResult is what the builtin dispatcher reports for one
// invocation: whether the name was recognized at all, and its Outcome
// if so.
type BuiltinResult struct {
	Handled bool
	Outcome Outcome
}

// BuiltinRegistry is the builtin dispatcher collaborator (spec.md §4.H).
// internal/builtins implements this; kept as an interface here so this
// package never imports internal/builtins (which imports this package
// for Outcome/BuiltinResult, so the dependency only runs one way).
type BuiltinRegistry interface {
	IsBuiltin(name string) bool
	// IsStateful reports whether running name anywhere but the final
	// stage of a pipeline would be meaningless (cd, export, unset, fg,
	// bg all mutate shell-global state a worker-thread copy can't see).
	IsStateful(name string) bool
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer, table *jobs.Table) BuiltinResult
}

// ExpandFunc performs tilde/variable/word-splitting/glob expansion on a
// segment's raw word tokens (internal/expand.Words matches this type).
type ExpandFunc func(words []Token, lastExitCode int) []string

// Runner drives chains through the pipeline and command executors,
// owning the real job table and the last exit code ($?).
type Runner struct {
	Jobs     *jobs.Table
	Builtins BuiltinRegistry
	Expand   ExpandFunc
	Stdout   io.Writer
	Stderr   io.Writer

	lastCode int
}

// NewRunner wires the collaborators the chain driver needs.
func NewRunner(table *jobs.Table, builtins BuiltinRegistry, expand ExpandFunc) *Runner {
	return &Runner{Jobs: table, Builtins: builtins, Expand: expand, Stdout: os.Stdout, Stderr: os.Stderr}
}

// LastCode returns $?.
func (r *Runner) LastCode() int { return r.lastCode }

// RunChain drives one parsed Chain per spec.md §4.G steps 4-6.
func (r *Runner) RunChain(ctx context.Context, chain *Chain) Outcome {
	if chain == nil || len(chain.Entries) == 0 {
		return Continue(r.lastCode)
	}

	if chain.Background && len(chain.Entries) > 1 {
		return r.runWholeChainBackground(chain)
	}

	var out Outcome
	for _, entry := range chain.Entries {
		switch entry.Connector {
		case ChainAnd:
			if r.lastCode != 0 {
				continue
			}
		case ChainOr:
			if r.lastCode == 0 {
				continue
			}
		}

		out = r.runPipeline(ctx, entry.Pipeline, chain.Background)
		r.lastCode = out.Code
		if out.Exit {
			return out
		}
	}
	return out
}

// runWholeChainBackground spawns a copy of the shell with the chain text
// fed as its -c argument, preserving &&/||/; short-circuiting inside the
// child's own foreground (spec.md §4.G step 4: a whole chain backgrounded
// with a single trailing `&` cannot be modeled as "background only the
// last pipeline", since an earlier entry's exit code gates later ones).
func (r *Runner) runWholeChainBackground(chain *Chain) Outcome {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}

	// The child gets the chain without its trailing `&`, so it runs the
	// chain in its own foreground instead of backgrounding it again.
	body := strings.TrimSuffix(strings.TrimSpace(chain.Raw), "&")
	cmd := exec.Command(self, "-c", body)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if jobcontrol.Supported {
		jobcontrol.PrepareCommand(cmd, 0)
	}

	if err := shellsignal.StartWithDefaultSignals(cmd.Start); err != nil {
		fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
		return Continue(1)
	}

	pgid := cmd.Process.Pid
	if jobcontrol.Supported {
		if p, err := jobcontrol.ProcessGroupID(cmd.Process.Pid); err == nil {
			pgid = p
		}
	}

	job := r.Jobs.Add(cmd.Process.Pid, pgid, chain.Raw, nil)
	fmt.Fprintf(r.Stdout, "[%d] %d\n", job.ID, cmd.Process.Pid)
	registerJobWaiter(r.Jobs, job.ID, cmd.Process.Pid, cmd)
	return Continue(0)
}

// runCommand is the command executor (spec.md §4.F): a single-stage
// pipeline, dispatched to a builtin or spawned as an external process,
// with no pipe plumbing to set up.
func (r *Runner) runCommand(ctx context.Context, seg *Segment, background bool, raw string) Outcome {
	redirs, err := r.expandRedirs(seg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
		return Continue(1)
	}

	defaults := redirect.Defaults{Stdin: redirect.Inherit(), Stdout: redirect.Inherit(), Stderr: redirect.Inherit()}
	res, err := redirect.Resolve(redirect.OSOpener{}, defaults, redirs)
	if err != nil {
		fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
		return Continue(1)
	}

	args := r.Expand(seg.Words, r.lastCode)
	name, rest := args[0], args[1:]

	if r.Builtins.IsBuiltin(name) {
		defer redirect.CloseAll(res)
		stdin := res.Stdin.Reader()
		stdout := res.Stdout.Writer(os.Stdout)
		stderr := res.Stderr.Writer(os.Stderr)
		result := r.Builtins.Run(ctx, name, rest, stdin, stdout, stderr, r.Jobs)
		if result.Outcome.Exit {
			return result.Outcome
		}
		return Continue(result.Outcome.Code)
	}

	path, lookErr := exec.LookPath(name)
	if lookErr != nil {
		redirect.CloseAll(res)
		fmt.Fprintf(r.Stderr, "jsh: %s: command not found\n", name)
		return Continue(127)
	}

	cmd := exec.Command(path, rest...)
	var closers []func()
	if err := attachHandle(res.Stdin, os.Stdin, false, &cmd.Stdin, &closers); err != nil {
		redirect.CloseAll(res)
		fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
		return Continue(1)
	}
	if err := attachHandle(res.Stdout, os.Stdout, true, &cmd.Stdout, &closers); err != nil {
		redirect.CloseAll(res)
		fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
		return Continue(1)
	}
	if err := attachHandle(res.Stderr, os.Stderr, true, &cmd.Stderr, &closers); err != nil {
		redirect.CloseAll(res)
		fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
		return Continue(1)
	}

	if jobcontrol.Supported {
		jobcontrol.PrepareCommand(cmd, 0)
	}

	startErr := shellsignal.StartWithDefaultSignals(cmd.Start)
	for _, c := range closers {
		c()
	}
	redirect.CloseAll(res)
	if startErr != nil {
		fmt.Fprintf(r.Stderr, "jsh: %s: %v\n", name, startErr)
		return Continue(126)
	}

	pgid := cmd.Process.Pid
	if jobcontrol.Supported {
		if p, err := jobcontrol.ProcessGroupID(cmd.Process.Pid); err == nil {
			pgid = p
		}
	}

	if background {
		job := r.Jobs.Add(cmd.Process.Pid, pgid, raw, nil)
		fmt.Fprintf(r.Stdout, "[%d] %d\n", job.ID, cmd.Process.Pid)
		registerJobWaiter(r.Jobs, job.ID, cmd.Process.Pid, cmd)
		return Continue(0)
	}

	return Continue(r.waitForeground(cmd, pgid, raw))
}

// waitForeground hands the terminal to pgid (unix only), blocks for the
// process to exit or stop, restores the terminal, and registers a
// Stopped job if it was suspended instead of exiting.
func (r *Runner) waitForeground(cmd *exec.Cmd, pgid int, raw string) int {
	var guard *jobcontrol.ForegroundTerminalGuard
	if jobcontrol.Supported {
		guard, _ = jobcontrol.AcquireForeground(pgid)
	}
	defer func() {
		if guard != nil {
			guard.Release()
		}
	}()

	if !jobcontrol.Supported {
		cmd.Wait()
		return status.FromProcessState(cmd.ProcessState)
	}

	outcome, err := jobcontrol.WaitForPid(cmd.Process.Pid)
	if err != nil {
		return 1
	}
	if outcome.Stopped {
		job := r.Jobs.AddStopped(cmd.Process.Pid, pgid, raw, nil)
		fmt.Fprintf(r.Stdout, "[%d]  Stopped  %s\n", job.ID, raw)
		registerJobWaiter(r.Jobs, job.ID, cmd.Process.Pid, cmd)
		return 0
	}
	return outcome.Code
}

// expandRedirs runs each redirection's operand token through the same
// expander command words go through (so `> $OUT`, `< ~/log`, `<< $HOME/x`
// work, per spec.md §6), and rejects an operand that expands to anything
// but exactly one field as an ambiguous redirect (spec.md §4.B).
func (r *Runner) expandRedirs(seg *Segment) ([]redirect.Redirection, error) {
	out := make([]redirect.Redirection, len(seg.Redirs))
	copy(out, seg.Redirs)
	for i, operand := range seg.RedirOperands {
		if operand == nil {
			continue
		}
		fields := r.Expand([]Token{*operand}, r.lastCode)
		if len(fields) != 1 {
			return nil, fmt.Errorf("ambiguous redirect: %q expands to %d words", operand.Value, len(fields))
		}
		if out[i].Target == redirect.TargetHereString {
			out[i].Text = fields[0]
		} else {
			out[i].Path = fields[0]
		}
	}
	return out, nil
}

// attachHandle resolves h to the *os.File an exec.Cmd field needs, recording
// its cleanup closer.
func attachHandle(h redirect.Handle, fallback *os.File, write bool, dst **os.File, closers *[]func()) error {
	f, closer, err := h.OSFileForExec(fallback, write)
	if err != nil {
		return err
	}
	*dst = f
	*closers = append(*closers, closer)
	return nil
}

// runPipeline is the pipeline executor (spec.md §4.E).
func (r *Runner) runPipeline(ctx context.Context, p *Pipeline, background bool) Outcome {
	if p == nil || len(p.Segments) == 0 {
		return Continue(0)
	}

	if len(p.Segments) == 1 {
		return r.runCommand(ctx, p.Segments[0], background, p.Raw)
	}

	n := len(p.Segments)
	for i, seg := range p.Segments {
		isLast := i == n-1
		if !isLast && containsStdoutRedirect(seg) {
			fmt.Fprintf(r.Stderr, "jsh: ambiguous output redirect in non-terminal pipeline stage\n")
			return Continue(2)
		}
		name := strings.TrimSpace(seg.Words[0].Value)
		if !isLast && r.Builtins.IsBuiltin(name) && r.Builtins.IsStateful(name) {
			fmt.Fprintf(r.Stderr, "jsh: %s: not meaningful mid-pipeline\n", name)
			return Continue(1)
		}
		if name == "exit" {
			fmt.Fprintf(r.Stderr, "jsh: exit: not valid inside a pipeline\n")
			return Continue(2)
		}
	}

	var (
		prevPipeFile *os.File
		procs        []*exec.Cmd
		pgid         int
		wg           sync.WaitGroup
		lastCode     int
		stoppedAll   bool
	)

	for i, seg := range p.Segments {
		isLast := i == n-1

		// myStdinFile is this stage's inherited read end of the pipe the
		// previous stage wrote into (nil for the first stage). The shell
		// must close its own copy once this stage has taken whatever it
		// needs from it — otherwise the shell keeps an extra open reader
		// on the pipe for the rest of its life, and a previous stage like
		// `yes` in `yes | head -1` never sees SIGPIPE once `head` exits,
		// because the kernel still sees a live reader (spec.md §5, §8).
		myStdinFile := prevPipeFile
		prevPipeFile = nil
		closeMyStdin := func() {
			if myStdinFile != nil {
				myStdinFile.Close()
				myStdinFile = nil
			}
		}

		redirs, err := r.expandRedirs(seg)
		if err != nil {
			fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
			closeMyStdin()
			return Continue(1)
		}

		defaults := redirect.Defaults{Stdin: redirect.Inherit(), Stdout: redirect.Inherit(), Stderr: redirect.Inherit()}
		if myStdinFile != nil {
			defaults.Stdin = redirect.FromFile(myStdinFile)
		}

		var pipeWriter *os.File
		if !isLast {
			pr, pw, err := os.Pipe()
			if err != nil {
				fmt.Fprintf(r.Stderr, "jsh: pipe: %v\n", err)
				closeMyStdin()
				return Continue(1)
			}
			defaults.Stdout = redirect.FromFile(pw)
			prevPipeFile = pr
			pipeWriter = pw
		}

		res, err := redirect.Resolve(redirect.OSOpener{}, defaults, redirs)
		if err != nil {
			fmt.Fprintf(r.Stderr, "jsh: %v\n", err)
			closeMyStdin()
			return Continue(1)
		}

		args := r.Expand(seg.Words, r.lastCode)
		name, rest := args[0], args[1:]

		if r.Builtins.IsBuiltin(name) {
			stdout := res.Stdout.Writer(os.Stdout)
			stderr := res.Stderr.Writer(os.Stderr)
			if isLast {
				result := r.Builtins.Run(ctx, name, rest, res.Stdin.Reader(), stdout, stderr, r.Jobs)
				redirect.CloseAll(res)
				closeMyStdin()
				lastCode = result.Outcome.Code
				if result.Outcome.Exit {
					return result.Outcome
				}
			} else {
				wg.Add(1)
				go func(stdin io.Reader, stdout, stderr io.Writer, res redirect.Result, pw, stdinFile *os.File, name string, rest []string) {
					defer wg.Done()
					defer redirect.CloseAll(res)
					defer pw.Close()
					if stdinFile != nil {
						defer stdinFile.Close()
					}
					isolated := jobs.NewTable(io.Discard)
					r.Builtins.Run(ctx, name, rest, stdin, stdout, stderr, isolated)
				}(res.Stdin.Reader(), stdout, stderr, res, pipeWriter, myStdinFile, name, rest)
			}
			continue
		}

		path, lookErr := exec.LookPath(name)
		if lookErr != nil {
			fmt.Fprintf(r.Stderr, "jsh: %s: command not found\n", name)
			redirect.CloseAll(res)
			closeMyStdin()
			lastCode = 127
			if pipeWriter != nil {
				pipeWriter.Close()
			}
			if isLast {
				break
			}
			continue
		}

		cmd := exec.Command(path, rest...)
		var closers []func()
		if err := attachHandle(res.Stdin, os.Stdin, false, &cmd.Stdin, &closers); err != nil {
			redirect.CloseAll(res)
			closeMyStdin()
			lastCode = 1
			if pipeWriter != nil {
				pipeWriter.Close()
			}
			continue
		}
		if err := attachHandle(res.Stdout, os.Stdout, true, &cmd.Stdout, &closers); err != nil {
			redirect.CloseAll(res)
			closeMyStdin()
			lastCode = 1
			if pipeWriter != nil {
				pipeWriter.Close()
			}
			continue
		}
		if err := attachHandle(res.Stderr, os.Stderr, true, &cmd.Stderr, &closers); err != nil {
			redirect.CloseAll(res)
			closeMyStdin()
			lastCode = 1
			if pipeWriter != nil {
				pipeWriter.Close()
			}
			continue
		}

		if jobcontrol.Supported {
			jobcontrol.PrepareCommand(cmd, pgid)
		}

		startErr := shellsignal.StartWithDefaultSignals(cmd.Start)
		for _, c := range closers {
			c()
		}
		redirect.CloseAll(res)
		closeMyStdin()

		if startErr != nil {
			fmt.Fprintf(r.Stderr, "jsh: %s: %v\n", name, startErr)
			lastCode = 126
			if pipeWriter != nil {
				pipeWriter.Close()
			}
			continue
		}
		if pipeWriter != nil {
			pipeWriter.Close()
		}

		if i == 0 {
			pgid = cmd.Process.Pid
			if jobcontrol.Supported {
				if p, err := jobcontrol.ProcessGroupID(cmd.Process.Pid); err == nil {
					pgid = p
				}
			}
		}
		procs = append(procs, cmd)
	}

	wg.Wait()

	if len(procs) == 0 {
		return Continue(lastCode)
	}

	if background {
		last := procs[len(procs)-1]
		for _, cmd := range procs[:len(procs)-1] {
			go cmd.Wait()
		}
		job := r.Jobs.Add(last.Process.Pid, pgid, p.Raw, nil)
		fmt.Fprintf(r.Stdout, "[%d] %d\n", job.ID, last.Process.Pid)
		registerJobWaiter(r.Jobs, job.ID, last.Process.Pid, last)
		return Continue(0)
	}

	var guard *jobcontrol.ForegroundTerminalGuard
	if jobcontrol.Supported {
		guard, _ = jobcontrol.AcquireForeground(pgid)
	}

	for _, cmd := range procs[:len(procs)-1] {
		go cmd.Wait()
	}

	last := procs[len(procs)-1]
	if jobcontrol.Supported {
		outcome, err := jobcontrol.WaitForPid(last.Process.Pid)
		if err != nil {
			lastCode = 1
		} else if outcome.Stopped {
			job := r.Jobs.AddStopped(last.Process.Pid, pgid, p.Raw, nil)
			fmt.Fprintf(r.Stdout, "[%d]  Stopped  %s\n", job.ID, p.Raw)
			registerJobWaiter(r.Jobs, job.ID, last.Process.Pid, last)
			stoppedAll = true
		} else {
			lastCode = outcome.Code
		}
	} else {
		last.Wait()
		lastCode = status.FromProcessState(last.ProcessState)
	}

	if guard != nil {
		guard.Release()
	}

	if stoppedAll {
		return Continue(0)
	}
	return Continue(lastCode)
}

func containsStdoutRedirect(seg *Segment) bool {
	for _, red := range seg.Redirs {
		if red.Fd == redirect.FdStdout {
			return true
		}
	}
	return false
}

// registerJobWaiter starts the perpetual wait loop for a tracked job's
// process and wires both the non-blocking PollFunc Reap() uses and the
// blocking BlockFunc the fg/wait builtins use onto the same
// underlying state, so only one goroutine ever calls waitpid for a given
// pid (calling it twice would race: the kernel hands the exit status to
// whichever waiter asks first, silently starving the other).
func registerJobWaiter(table *jobs.Table, id, pid int, cmd *exec.Cmd) {
	w := newJobWaiter(pid, cmd)
	table.SetPoll(id, w.poll)
	table.SetBlock(id, w.block)
}

// jobWaiter owns the single waitpid loop for one job's process, fanning
// its state out to non-blocking pollers (Reap) and blocking waiters
// (fg/wait) alike (spec.md §4.C/§4.D).
type jobWaiter struct {
	mu      sync.Mutex
	cond    *sync.Cond
	exited  bool
	code    int
	stopped bool
}

func newJobWaiter(pid int, cmd *exec.Cmd) *jobWaiter {
	w := &jobWaiter{}
	w.cond = sync.NewCond(&w.mu)
	go w.run(pid, cmd)
	return w
}

func (w *jobWaiter) run(pid int, cmd *exec.Cmd) {
	if !jobcontrol.Supported {
		cmd.Wait()
		w.mu.Lock()
		w.exited, w.code = true, status.FromProcessState(cmd.ProcessState)
		w.cond.Broadcast()
		w.mu.Unlock()
		return
	}

	for {
		outcome, err := jobcontrol.WaitForPid(pid)
		w.mu.Lock()
		if err != nil {
			w.exited, w.code = true, 1
			w.cond.Broadcast()
			w.mu.Unlock()
			return
		}
		if outcome.Stopped {
			w.stopped = true
			w.cond.Broadcast()
			w.mu.Unlock()
			continue
		}
		w.exited, w.code = true, outcome.Code
		w.cond.Broadcast()
		w.mu.Unlock()
		return
	}
}

// poll is Reap's non-blocking check: it never consumes a pending stop,
// since Reap only cares about Running jobs finishing.
func (w *jobWaiter) poll() (bool, int, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.exited {
		return true, w.code, false, nil
	}
	return false, 0, w.stopped, nil
}

// block waits for the job's next transition (or returns immediately if
// one is already pending), consuming a pending stop so a second fg/wait
// call waits for the NEXT transition rather than replaying this one.
func (w *jobWaiter) block() (exited bool, code int, stopped bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.exited && !w.stopped {
		w.cond.Wait()
	}
	if w.exited {
		return true, w.code, false
	}
	w.stopped = false
	return false, 0, true
}

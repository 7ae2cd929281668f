// Package builtins implements the builtin dispatcher described in
// spec.md §4.H, grounded on original_source/src/builtins.rs (cd, pwd,
// echo, export, unset, type, exit) and original_source/src/jobs.rs
// (jobs, fg, bg, wait, supplemented per SPEC_FULL.md §1 into the same
// dispatcher contract).
package builtins

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kaliedev/jsh/internal/jobcontrol"
	"github.com/kaliedev/jsh/internal/jobs"
	"github.com/kaliedev/jsh/internal/jobstats"
	"github.com/kaliedev/jsh/internal/shell"
	"github.com/kaliedev/jsh/internal/ui"
)

var names = []string{"cd", "pwd", "echo", "export", "unset", "type", "exit", "jobs", "fg", "bg", "wait"}

// stateful builtins mutate shell-global state (cwd, environment, job
// table transitions) that a pipeline worker goroutine's private copy
// could never make visible to the rest of the shell — spec.md §5's
// "mutations from worker threads are forbidden" is enforced by rejecting
// these mid-pipeline (internal/shell.Runner.runPipeline checks
// IsStateful before ever reaching Run).
var stateful = map[string]bool{
	"cd": true, "export": true, "unset": true, "fg": true, "bg": true, "exit": true,
}

// Registry implements shell.BuiltinRegistry.
type Registry struct{}

// New returns the builtin dispatcher.
func New() *Registry { return &Registry{} }

func (Registry) IsBuiltin(name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (Registry) IsStateful(name string) bool { return stateful[name] }

func (r *Registry) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer, table *jobs.Table) shell.BuiltinResult {
	var outcome shell.Outcome
	switch name {
	case "cd":
		outcome = cd(args, stderr)
	case "pwd":
		outcome = pwd(stdout, stderr)
	case "echo":
		outcome = echo(args, stdout)
	case "export":
		outcome = export(args, stderr)
	case "unset":
		outcome = unset(args)
	case "type":
		outcome = typeBuiltin(args, stdout, stderr)
	case "exit":
		outcome = exitBuiltin(args, stderr)
	case "jobs":
		outcome = jobsBuiltin(args, table, stdout, stderr)
	case "fg":
		outcome = fg(args, table, stdout, stderr)
	case "bg":
		outcome = bg(args, table, stdout, stderr)
	case "wait":
		outcome = waitBuiltin(args, table, stderr)
	default:
		fmt.Fprintf(stderr, "jsh: unknown builtin: %s\n", name)
		return shell.BuiltinResult{Handled: false, Outcome: shell.Continue(1)}
	}
	return shell.BuiltinResult{Handled: true, Outcome: outcome}
}

func cd(args []string, stderr io.Writer) shell.Outcome {
	var target string
	switch {
	case len(args) > 0 && args[0] == "-":
		prev, ok := os.LookupEnv("OLDPWD")
		if !ok {
			fmt.Fprintln(stderr, "cd: OLDPWD not set")
			return shell.Continue(1)
		}
		target = prev
	case len(args) > 0:
		target = args[0]
	default:
		home, ok := os.LookupEnv("HOME")
		if !ok {
			home, ok = os.LookupEnv("USERPROFILE")
		}
		if !ok {
			home = "."
		}
		target = home
	}

	cwd, err := os.Getwd()
	if err == nil {
		os.Setenv("OLDPWD", cwd)
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(stderr, "cd: %s: %v\n", target, err)
		return shell.Continue(1)
	}
	return shell.Continue(0)
}

func pwd(stdout, stderr io.Writer) shell.Outcome {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "pwd: %v\n", err)
		return shell.Continue(1)
	}
	fmt.Fprintln(stdout, cwd)
	return shell.Continue(0)
}

func echo(args []string, stdout io.Writer) shell.Outcome {
	fmt.Fprintln(stdout, strings.Join(args, " "))
	return shell.Continue(0)
}

func export(args []string, stderr io.Writer) shell.Outcome {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Fprintln(stderr, "export: usage: export VAR=value")
			continue
		}
		os.Setenv(key, value)
	}
	return shell.Continue(0)
}

func unset(args []string) shell.Outcome {
	for _, arg := range args {
		os.Unsetenv(arg)
	}
	return shell.Continue(0)
}

func typeBuiltin(args []string, stdout, stderr io.Writer) shell.Outcome {
	code := 0
	r := Registry{}
	for _, arg := range args {
		if r.IsBuiltin(arg) {
			fmt.Fprintf(stdout, "%s is a shell builtin\n", arg)
			continue
		}
		if path, err := exec.LookPath(arg); err == nil {
			fmt.Fprintf(stdout, "%s is %s\n", arg, path)
		} else {
			fmt.Fprintf(stderr, "%s: not found\n", arg)
			code = 1
		}
	}
	return shell.Continue(code)
}

func exitBuiltin(args []string, stderr io.Writer) shell.Outcome {
	if len(args) == 0 {
		return shell.ExitShell(0)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "exit: %s: numeric argument required\n", args[0])
		return shell.ExitShell(2)
	}
	return shell.ExitShell(n)
}

func jobsBuiltin(args []string, table *jobs.Table, stdout, stderr io.Writer) shell.Outcome {
	fs := pflag.NewFlagSet("jobs", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	long := fs.BoolP("long", "l", false, "show pid/pgid and resource usage")
	if err := fs.Parse(reorderArgsForFlags(fs, args)); err != nil {
		fmt.Fprintf(stderr, "jobs: %v\n", err)
		return shell.Continue(1)
	}

	table.Reap()

	if !*long {
		for _, job := range table.SortedIter() {
			status := ui.StyleForStatus(job.Status.String()).Render(job.Status.String())
			fmt.Fprintf(stdout, "[%d]  %-8s %s\n", job.ID, status, job.Command)
		}
		return shell.Continue(0)
	}

	tbl := ui.NewJobTable(stdout)
	for _, job := range table.SortedIter() {
		res := "-"
		if job.Status == jobs.Running {
			if snap, err := jobstats.Read(job.PID); err == nil {
				res = snap.Format()
			}
		}
		status := ui.StyleForStatus(job.Status.String()).Render(job.Status.String())
		tbl.AddRow(fmt.Sprintf("[%d]", job.ID), status, fmt.Sprint(job.PID), fmt.Sprint(job.PGID), res, job.Command)
	}
	tbl.Render()
	return shell.Continue(0)
}

// resolveTarget parses an optional "%N" (or bare "N") argument; with no
// argument it falls back to the most recent job, or the most recent
// Stopped job when stopped is true.
func resolveTarget(args []string, table *jobs.Table, stopped bool) (int, *jobs.Job, error) {
	var id int
	var ok bool
	if len(args) > 0 {
		s := strings.TrimPrefix(args[0], "%")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: no such job", args[0])
		}
		id, ok = n, true
	} else if stopped {
		id, ok = table.MostRecentStoppedID()
	} else {
		id, ok = table.MostRecentID()
	}
	if !ok {
		return 0, nil, fmt.Errorf("no current job")
	}
	job, found := table.Get(id)
	if !found {
		return 0, nil, fmt.Errorf("%%%d: no such job", id)
	}
	return id, job, nil
}

func fg(args []string, table *jobs.Table, stdout, stderr io.Writer) shell.Outcome {
	id, job, err := resolveTarget(args, table, false)
	if err != nil {
		fmt.Fprintf(stderr, "fg: %v\n", err)
		return shell.Continue(1)
	}

	fmt.Fprintln(stdout, job.Command)

	var guard *jobcontrol.ForegroundTerminalGuard
	if jobcontrol.Supported {
		guard, _ = jobcontrol.AcquireForeground(job.PGID)
		jobcontrol.SendContinueToGroup(job.PGID)
	}

	exited, code, stopped := job.Block()

	if guard != nil {
		guard.Release()
	}

	switch {
	case exited:
		table.Remove(id)
		return shell.Continue(code)
	case stopped:
		table.MarkStopped(id)
		return shell.Continue(0)
	default:
		table.Remove(id)
		return shell.Continue(1)
	}
}

func bg(args []string, table *jobs.Table, stdout, stderr io.Writer) shell.Outcome {
	id, job, err := resolveTarget(args, table, true)
	if err != nil {
		fmt.Fprintf(stderr, "bg: %v\n", err)
		return shell.Continue(1)
	}
	if job.Status != jobs.Stopped {
		fmt.Fprintf(stderr, "bg: job %d already in background\n", id)
		return shell.Continue(1)
	}

	if jobcontrol.Supported {
		if err := jobcontrol.SendContinueToGroup(job.PGID); err != nil {
			fmt.Fprintf(stderr, "bg: %v\n", err)
			return shell.Continue(1)
		}
	}
	table.MarkRunning(id)
	fmt.Fprintf(stdout, "[%d] %s &\n", id, job.Command)
	return shell.Continue(0)
}

func waitBuiltin(args []string, table *jobs.Table, stderr io.Writer) shell.Outcome {
	var ids []int
	if len(args) == 0 {
		ids = table.RunningIDs()
	} else {
		for _, arg := range args {
			s := strings.TrimPrefix(arg, "%")
			n, err := strconv.Atoi(s)
			if err != nil {
				fmt.Fprintf(stderr, "wait: %s: no such job\n", arg)
				return shell.Continue(1)
			}
			ids = append(ids, n)
		}
	}
	sort.Ints(ids)

	code := 0
	for _, id := range ids {
		job, ok := table.Get(id)
		if !ok {
			fmt.Fprintf(stderr, "wait: %%%d: no such job\n", id)
			return shell.Continue(1)
		}
		for {
			exited, c, stopped := job.Block()
			if exited {
				code = c
				table.Remove(id)
				break
			}
			if stopped {
				table.MarkStopped(id)
				continue
			}
		}
	}
	return shell.Continue(code)
}

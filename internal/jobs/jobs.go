// Package jobs implements the job table described in spec §4.D: the
// registry of background and stopped jobs the `jobs`/`fg`/`bg`/`wait`
// builtins and the pipeline executor operate on. Grounded on
// original_source/src/jobs.rs, translated from a single-threaded HashMap
// into a mutex-guarded map since the REPL, signal handlers, and pipeline
// executor goroutines may all touch it.
package jobs

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Status is the lifecycle state of a tracked job.
type Status int

const (
	Running Status = iota
	Stopped
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// PollFunc performs one non-blocking check of whether a job's underlying
// process has changed state. It is supplied by whatever started the
// process (the pipeline executor), keeping this package free of exec/
// jobcontrol details and therefore trivially testable.
type PollFunc func() (exited bool, code int, stopped bool, err error)

// BlockFunc blocks until a job's process next exits or stops (a
// transition past whatever was last observed), reporting which. Distinct
// from PollFunc: fg/wait need to block, Reap must never block.
type BlockFunc func() (exited bool, code int, stopped bool)

// Job is a single tracked background or stopped job.
type Job struct {
	ID       int
	PID      int
	PGID     int
	Command  string
	Status   Status
	ExitCode int

	poll  PollFunc
	block BlockFunc
}

// Block invokes the job's BlockFunc, if one is attached (set by whatever
// started the process). Used by the fg/wait builtins; returns
// exited=false, stopped=false if no BlockFunc was ever attached.
func (j *Job) Block() (bool, int, bool) {
	if j.block == nil {
		return false, 0, false
	}
	return j.block()
}

// Table is the shell's job table. Zero value is not usable; use NewTable.
type Table struct {
	mu     sync.Mutex
	jobs   map[int]*Job
	nextID int
	out    io.Writer
}

// NewTable returns an empty job table. Reap's "[id]  Done  command" lines
// are written to out (the shell's stdout).
func NewTable(out io.Writer) *Table {
	if out == nil {
		out = os.Stdout
	}
	return &Table{jobs: make(map[int]*Job), nextID: 1, out: out}
}

// Add inserts a new Running job with a fresh, strictly increasing id.
func (t *Table) Add(pid, pgid int, command string, poll PollFunc) *Job {
	return t.addWithStatus(pid, pgid, command, Running, poll)
}

// AddStopped inserts a new job already in the Stopped state (used when a
// pipeline's drain loop observes a stop before any prompt returns).
func (t *Table) AddStopped(pid, pgid int, command string, poll PollFunc) *Job {
	return t.addWithStatus(pid, pgid, command, Stopped, poll)
}

func (t *Table) addWithStatus(pid, pgid int, command string, status Status, poll PollFunc) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := &Job{
		ID:      t.nextID,
		PID:     pid,
		PGID:    pgid,
		Command: command,
		Status:  status,
		poll:    poll,
	}
	t.jobs[job.ID] = job
	t.nextID++
	return job
}

// Reap non-blockingly polls every Running job. Jobs that have finished
// print "[id]  Done  command" to the table's writer and are removed.
// Errors polling a job are reported to stderr but the job is left in
// place so a later reap can retry.
func (t *Table) Reap() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var doneIDs []int
	for id, job := range t.jobs {
		if job.Status != Running || job.poll == nil {
			continue
		}
		exited, code, stopped, err := job.poll()
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "jsh: error checking job %d: %v\n", id, err)
		case exited:
			job.Status = Done
			job.ExitCode = code
			fmt.Fprintf(t.out, "[%d]  Done  %s\n", job.ID, job.Command)
			doneIDs = append(doneIDs, id)
		case stopped:
			job.Status = Stopped
		}
	}
	for _, id := range doneIDs {
		delete(t.jobs, id)
	}
}

// Get returns the job with the given id.
func (t *Table) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	return job, ok
}

// SetPoll attaches (or replaces) the poll function a Running job is
// checked with. Used when the process is started before the job table
// entry exists, so the monitor goroutine can be wired in afterward.
func (t *Table) SetPoll(id int, poll PollFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.poll = poll
	}
}

// SetBlock attaches (or replaces) the BlockFunc a job's fg/wait callers
// use to wait for its next state transition.
func (t *Table) SetBlock(id int, block BlockFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.block = block
	}
}

// Remove deletes a job from the table (used once fg/wait has collected
// its final status).
func (t *Table) Remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// MarkRunning transitions a Stopped job back to Running (used by `bg`).
func (t *Table) MarkRunning(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.Status = Running
	}
}

// MarkStopped transitions a job to Stopped (used when `fg` observes the
// resumed foreground job stop again).
func (t *Table) MarkStopped(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		job.Status = Stopped
	}
}

// SortedIter returns every job ordered by ascending id, for `jobs`.
func (t *Table) SortedIter() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		list = append(list, job)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// MostRecentID returns the id of the most recently added job of any
// status, the default target for `fg` with no argument.
func (t *Table) MostRecentID() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	best, ok := -1, false
	for id := range t.jobs {
		if id > best {
			best, ok = id, true
		}
	}
	return best, ok
}

// MostRecentStoppedID returns the id of the most recently added Stopped
// job, the default target for `bg` with no argument.
func (t *Table) MostRecentStoppedID() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	best, ok := -1, false
	for id, job := range t.jobs {
		if job.Status == Stopped && id > best {
			best, ok = id, true
		}
	}
	return best, ok
}

// RunningIDs returns every currently Running job id, the target set for
// a bare `wait`.
func (t *Table) RunningIDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []int
	for id, job := range t.jobs {
		if job.Status == Running {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Len reports how many jobs remain in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

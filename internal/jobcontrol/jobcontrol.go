// Package jobcontrol wraps the POSIX process-group and terminal-ownership
// primitives the pipeline executor and builtin dispatcher rely on (spec
// §4.C). The POSIX implementation (jobcontrol_unix.go) is backed by
// golang.org/x/sys/unix; jobcontrol_other.go collapses these to no-ops on
// platforms without process groups or a controlling terminal.
package jobcontrol

// WaitOutcome is the result of a stop-aware wait on a single pid.
type WaitOutcome struct {
	Exited bool
	Code   int // valid when Exited
	Stopped bool
}

// Package redirect implements the left-to-right redirection resolver
// described in spec §4.B: folding an ordered list of Redirections over a
// set of default stdin/stdout/stderr handles into three final Handles.
package redirect

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Fd names the three standard streams a Redirection can target.
const (
	FdStdin  = 0
	FdStdout = 1
	FdStderr = 2
)

// TargetKind distinguishes what a Redirection points at.
type TargetKind int

const (
	TargetFile       TargetKind = iota // truncate, write
	TargetFileAppend                   // append, write
	TargetFileRead                     // read
	TargetFd                           // duplicate another fd's current handle
	TargetHereString                   // literal text + "\n" as stdin
)

// Redirection is one parsed redirect instruction; order in a list matters.
type Redirection struct {
	Target     TargetKind
	Path       string // for TargetFile / TargetFileAppend / TargetFileRead
	Text       string // for TargetHereString
	DupFd      int    // for TargetFd: which fd's current handle to duplicate (1 or 2)
	Fd         int    // which of 0/1/2 this redirection assigns
}

// Handle is the polymorphic representation of a redirect target described
// in spec §3: inherited from the parent, the null device, an opened file,
// or one end of an OS pipe. Handles in flight during resolution can be
// independently duplicated so `2>&1` binds to whatever stdout currently
// points at, not to an earlier view of it.
type Handle struct {
	kind   handleKind
	file   *os.File // OpenedFile, PipeReader, PipeWriter
	append bool     // only meaningful for OpenedFile used as a write target
}

type handleKind int

const (
	handleInherit handleKind = iota
	handleNull
	handleFile
)

// Inherit is the default handle: the shell's own stdin/stdout/stderr.
func Inherit() Handle { return Handle{kind: handleInherit} }

// Null represents the null device (/dev/null, or NUL on Windows).
func Null() Handle { return Handle{kind: handleNull} }

// FromFile wraps an already-open *os.File (used for pipe endpoints and
// opened redirect targets) as a Handle.
func FromFile(f *os.File) Handle { return Handle{kind: handleFile, file: f} }

// IsInherit reports whether h is the Inherit sentinel.
func (h Handle) IsInherit() bool { return h.kind == handleInherit }

// IsNull reports whether h is the Null sentinel.
func (h Handle) IsNull() bool { return h.kind == handleNull }

// File returns the underlying *os.File, or nil for Inherit/Null.
func (h Handle) File() *os.File { return h.file }

// Duplicate returns a Handle referring to the same underlying resource.
// For an opened file no OS-level dup is made: the copy shares the same
// *os.File, which is safe because
// Handles are write-once during resolution and never concurrently closed
// by more than one owner — ownership transfers explicitly to the stage
// that ultimately exec's or runs the builtin).
func (h Handle) Duplicate() (Handle, error) {
	return h, nil
}

// Reader adapts a Handle for use as a child's stdin / a builtin's stdin.
// Inherit maps to os.Stdin, Null to an always-EOF reader.
func (h Handle) Reader() io.Reader {
	switch h.kind {
	case handleNull:
		return nullReader{}
	case handleFile:
		return h.file
	default:
		return os.Stdin
	}
}

// Writer adapts a Handle for use as a child's stdout/stderr / a builtin's
// output stream. Inherit maps to os.Stdout-equivalent (caller supplies
// which), Null discards.
func (h Handle) Writer(inheritDefault *os.File) io.Writer {
	switch h.kind {
	case handleNull:
		return nullWriter{}
	case handleFile:
		return h.file
	default:
		return inheritDefault
	}
}

// OSFile returns the *os.File to hand to exec.Cmd.Stdin/Stdout/Stderr, or
// nil for Inherit (exec.Cmd treats a nil field as the null device for
// Stdin but "inherit from parent" only when explicitly set to os.Stdin;
// callers pass os.Stdin/os.Stdout/os.Stderr for Inherit explicitly).
func (h Handle) OSFile() *os.File {
	switch h.kind {
	case handleFile:
		return h.file
	default:
		return nil
	}
}

// OSFileForExec returns the *os.File to assign to an exec.Cmd's
// Stdin/Stdout/Stderr field: fallback for Inherit, the opened file for a
// real redirect, or the null device opened on demand for Null (Resolve
// represents /dev/null as Null and never opens a real fd for it itself).
// The returned closer must be called once the child has started; it is
// a no-op unless a null-device file was opened here.
func (h Handle) OSFileForExec(fallback *os.File, write bool) (*os.File, func(), error) {
	switch h.kind {
	case handleFile:
		return h.file, func() {}, nil
	case handleNull:
		flags := os.O_RDONLY
		if write {
			flags = os.O_WRONLY
		}
		f, err := os.OpenFile(os.DevNull, flags, 0)
		if err != nil {
			return nil, func() {}, err
		}
		return f, func() { f.Close() }, nil
	default:
		return fallback, func() {}, nil
	}
}

type nullReader struct{}

func (nullReader) Read([]byte) (int, error) { return 0, io.EOF }

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

// Defaults is the starting triple of handles a resolution folds
// Redirections over.
type Defaults struct {
	Stdin  Handle
	Stdout Handle
	Stderr Handle
}

// Result is the outcome of resolving a Redirection list: the three final
// handles, whether stdout was explicitly redirected by the user (used by
// the pipeline executor to reject redirecting a non-terminal stage's
// stdout), and the files that must be closed once the stage finishes.
type Result struct {
	Stdin    Handle
	Stdout   Handle
	Stderr   Handle
	StdoutRedirected bool
	Opened   []*os.File
}

// Opener abstracts filesystem access so tests can substitute an in-memory
// filesystem; OSOpener is the production implementation.
type Opener interface {
	OpenRead(path string) (*os.File, error)
	OpenWrite(path string, append bool) (*os.File, error)
}

type OSOpener struct{}

func (OSOpener) OpenRead(path string) (*os.File, error) {
	return os.Open(path)
}

func (OSOpener) OpenWrite(path string, append bool) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(path, flags, 0644)
}

// IsNullDevice reports whether path names the platform's null device.
func IsNullDevice(path string) bool {
	if path == "/dev/null" {
		return true
	}
	return strings.EqualFold(path, "NUL")
}

// Resolve folds redirs left-to-right over defaults per spec §4.B's table,
// returning the final three handles. On error, files already opened for
// earlier entries in the same list are closed before returning so no
// descriptor leaks out of a failed resolution.
func Resolve(opener Opener, defaults Defaults, redirs []Redirection) (Result, error) {
	res := Result{Stdin: defaults.Stdin, Stdout: defaults.Stdout, Stderr: defaults.Stderr}

	fail := func(err error) (Result, error) {
		for _, f := range res.Opened {
			f.Close()
		}
		return Result{}, err
	}

	for _, r := range redirs {
		switch {
		case r.Target == TargetFd && r.Fd == r.DupFd:
			// self-dup, e.g. 1>&1: no-op

		case r.Target == TargetFile && r.Fd == FdStdout:
			h, f, err := openWrite(opener, r.Path, false)
			if err != nil {
				return fail(err)
			}
			res.Stdout = h
			res.StdoutRedirected = true
			if f != nil {
				res.Opened = append(res.Opened, f)
			}

		case r.Target == TargetFileAppend && r.Fd == FdStdout:
			h, f, err := openWrite(opener, r.Path, true)
			if err != nil {
				return fail(err)
			}
			res.Stdout = h
			res.StdoutRedirected = true
			if f != nil {
				res.Opened = append(res.Opened, f)
			}

		case r.Target == TargetFileRead && r.Fd == FdStdin:
			if IsNullDevice(r.Path) {
				res.Stdin = Null()
				continue
			}
			f, err := opener.OpenRead(r.Path)
			if err != nil {
				return fail(err)
			}
			res.Stdin = FromFile(f)
			res.Opened = append(res.Opened, f)

		case r.Target == TargetFile && r.Fd == FdStderr:
			h, f, err := openWrite(opener, r.Path, false)
			if err != nil {
				return fail(err)
			}
			res.Stderr = h
			if f != nil {
				res.Opened = append(res.Opened, f)
			}

		case r.Target == TargetFileAppend && r.Fd == FdStderr:
			h, f, err := openWrite(opener, r.Path, true)
			if err != nil {
				return fail(err)
			}
			res.Stderr = h
			if f != nil {
				res.Opened = append(res.Opened, f)
			}

		case r.Target == TargetFd && r.Fd == FdStderr && r.DupFd == FdStdout:
			// 2>&1: stderr <- duplicate of stdout's CURRENT handle
			dup, err := res.Stdout.Duplicate()
			if err != nil {
				return fail(err)
			}
			res.Stderr = dup

		case r.Target == TargetFd && r.Fd == FdStdout && r.DupFd == FdStderr:
			// 1>&2: stdout <- duplicate of stderr's CURRENT handle
			dup, err := res.Stderr.Duplicate()
			if err != nil {
				return fail(err)
			}
			res.Stdout = dup

		case r.Target == TargetHereString && r.Fd == FdStdin:
			pr, pw, err := os.Pipe()
			if err != nil {
				return fail(err)
			}
			go func(text string) {
				defer pw.Close()
				io.WriteString(pw, text+"\n")
			}(r.Text)
			res.Stdin = FromFile(pr)
			res.Opened = append(res.Opened, pr)

		default:
			return fail(fmt.Errorf("jsh: unsupported redirection (fd %d)", r.Fd))
		}
	}

	return res, nil
}

func openWrite(opener Opener, path string, appendMode bool) (Handle, *os.File, error) {
	if IsNullDevice(path) {
		return Null(), nil, nil
	}
	f, err := opener.OpenWrite(path, appendMode)
	if err != nil {
		return Handle{}, nil, err
	}
	return FromFile(f), f, nil
}

// CloseAll closes every file opened during Resolve.
func CloseAll(r Result) {
	for _, f := range r.Opened {
		f.Close()
	}
}

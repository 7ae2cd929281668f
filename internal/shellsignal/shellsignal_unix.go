//go:build unix

package shellsignal

import (
	"os"
	"os/signal"
	"syscall"
)

// ChildDefaultSignals lists the dispositions a foreground child process
// must see as SIG_DFL even though the shell itself ignores them (spec.md
// §4.I: "Children reset these to default in the pre-exec block"). Go's
// os/exec has no pre-exec hook, so the bracket in StartWithDefaultSignals
// achieves the same effect: the disposition is put back to default for the
// narrow window between fork and exec, then restored once Start returns.
var ChildDefaultSignals = []os.Signal{syscall.SIGTSTP, syscall.SIGQUIT, syscall.SIGPIPE}

// StartWithDefaultSignals brackets a cmd.Start call (or equivalent) so the
// spawned child inherits default dispositions for the signals the shell
// itself ignores, mirroring the original's pre_exec reset without requiring
// one.
func StartWithDefaultSignals(start func() error) error {
	signal.Reset(ChildDefaultSignals...)
	defer signal.Ignore(ChildDefaultSignals...)
	return start()
}

func ignoreShellLevelSignals() {
	signal.Ignore(ChildDefaultSignals...)
}

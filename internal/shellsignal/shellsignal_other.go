//go:build !unix

package shellsignal

// StartWithDefaultSignals is a passthrough on platforms without TSTP/QUIT/
// PIPE dispositions to reset.
func StartWithDefaultSignals(start func() error) error {
	return start()
}

func ignoreShellLevelSignals() {}

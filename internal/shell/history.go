package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// HistoryExpander expands `!!`, `!-N`, `!N`, and `!prefix` references
// against the current session's command history (SPEC_FULL.md §4
// supplemented features, grounded on the teacher's repl.go and the original's
// editor.rs history model).
type HistoryExpander struct {
	session []string
}

// Record appends a line to the session history used by `!!` and `!-N`;
// the REPL records each line before parsing it, whether or not it parses.
func (h *HistoryExpander) Record(line string) {
	h.session = append(h.session, line)
}

// Session returns the in-memory session history, most recent last.
func (h *HistoryExpander) Session() []string {
	return h.session
}

// Expand rewrites a `!`-prefixed line into the command it refers to.
// full is the persisted history (oldest first) consulted for `!N` and
// `!prefix`; `!!`/`!-N` always resolve against the current session only.
func (h *HistoryExpander) Expand(line string, full []string) (string, error) {
	if !strings.HasPrefix(line, "!") || len(line) < 2 {
		return line, nil
	}

	if line == "!!" {
		if len(h.session) == 0 {
			return "", fmt.Errorf("!!: event not found")
		}
		return h.session[len(h.session)-1], nil
	}

	if strings.HasPrefix(line, "!-") {
		n, err := strconv.Atoi(line[2:])
		if err != nil || n < 1 {
			return "", fmt.Errorf("!%s: event not found", line[1:])
		}
		idx := len(h.session) - n
		if idx < 0 {
			return "", fmt.Errorf("!%s: event not found", line[1:])
		}
		return h.session[idx], nil
	}

	if len(full) == 0 {
		return "", fmt.Errorf("no history available")
	}

	rest := line[1:]
	if n, err := strconv.Atoi(rest); err == nil {
		if n < 1 || n > len(full) {
			return "", fmt.Errorf("!%d: event not found", n)
		}
		return full[n-1], nil
	}

	for i := len(full) - 1; i >= 0; i-- {
		if strings.HasPrefix(full[i], rest) {
			return full[i], nil
		}
	}
	return "", fmt.Errorf("!%s: event not found", rest)
}

package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// jobTableHeaders are the fixed columns `jobs -l` prints; unlike a
// general-purpose table there is no caller-supplied header set.
var jobTableHeaders = []string{"ID", "STATUS", "PID", "PGID", "RES", "COMMAND"}

// JobTable renders the `jobs -l` long-format listing: one row per job,
// columns padded to the widest value seen in that column. The STATUS
// column carries ANSI color (see StyleForStatus); width math strips it
// first so colored and plain columns still line up.
type JobTable struct {
	writer io.Writer
	rows   [][]string
}

// NewJobTable creates a table writing to w.
func NewJobTable(w io.Writer) *JobTable {
	return &JobTable{writer: w}
}

// AddRow appends one job's already-formatted row: id, styled status, pid,
// pgid, resource snapshot, and command line.
func (t *JobTable) AddRow(id, status, pid, pgid, res, command string) {
	t.rows = append(t.rows, []string{id, status, pid, pgid, res, command})
}

// Render prints the header row followed by every added job row; with no
// rows it prints nothing, not even the header.
func (t *JobTable) Render() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(jobTableHeaders))
	for i, h := range jobTableHeaders {
		widths[i] = visibleLen(h)
	}
	for _, row := range t.rows {
		for i, col := range row {
			if w := visibleLen(col); w > widths[i] {
				widths[i] = w
			}
		}
	}

	t.printRow(jobTableHeaders, widths)
	for _, row := range t.rows {
		t.printRow(row, widths)
	}
}

func (t *JobTable) printRow(row []string, widths []int) {
	for i, col := range row {
		fmt.Fprint(t.writer, col)
		if i < len(widths)-1 {
			fmt.Fprint(t.writer, strings.Repeat(" ", widths[i]-visibleLen(col)+2))
		}
	}
	fmt.Fprintln(t.writer)
}

// visibleLen returns s's rendered width with ANSI escapes stripped, so a
// colored STATUS cell still lines up against its plain neighbors.
func visibleLen(s string) int {
	return runewidth.StringWidth(stripANSI(s))
}

func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

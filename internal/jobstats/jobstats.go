// Package jobstats supplements `jobs -l` with a per-job resource
// snapshot (RSS and CPU percent), a feature the original shell's job
// table never had (original_source/src/jobs.rs tracks only pid/pgid/
// command/status). Grounded on the teacher's own use of gopsutil for
// system memory reporting (internal/util/memory.go in the teacher repo),
// generalized from gopsutil/v3/mem to gopsutil/v3/process for per-pid
// figures.
package jobstats

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is one point-in-time resource reading for a running job.
type Snapshot struct {
	RSSBytes  uint64
	CPUPercent float64
}

// Read queries the OS for pid's current resource usage. Processes that
// have already exited (a race with Reap) report an error the caller
// should treat as "no stats available" rather than fatal.
func Read(pid int) (Snapshot, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return Snapshot{}, fmt.Errorf("jobstats: pid %d: %w", pid, err)
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		return Snapshot{}, fmt.Errorf("jobstats: pid %d memory: %w", pid, err)
	}

	cpu, err := proc.CPUPercent()
	if err != nil {
		return Snapshot{}, fmt.Errorf("jobstats: pid %d cpu: %w", pid, err)
	}

	return Snapshot{RSSBytes: mem.RSS, CPUPercent: cpu}, nil
}

// Format renders a Snapshot the way `jobs -l` prints it: "12.3MB  0.4%".
func (s Snapshot) Format() string {
	return fmt.Sprintf("%s  %.1f%%", formatBytes(s.RSSBytes), s.CPUPercent)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for x := n / unit; x >= unit; x /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

package jobstats_test

import (
	"os"
	"testing"

	"github.com/kaliedev/jsh/internal/jobstats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_CurrentProcess(t *testing.T) {
	snap, err := jobstats.Read(os.Getpid())
	require.NoError(t, err)
	assert.Greater(t, snap.RSSBytes, uint64(0))
}

func TestRead_NoSuchProcess(t *testing.T) {
	_, err := jobstats.Read(1 << 30)
	assert.Error(t, err)
}

func TestSnapshot_Format(t *testing.T) {
	snap := jobstats.Snapshot{RSSBytes: 2048, CPUPercent: 1.3}
	assert.Equal(t, "2.0KB  1.3%", snap.Format())
}

package status_test

import (
	"os/exec"
	"testing"

	"github.com/kaliedev/jsh/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestFromProcessState_NormalExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	err := cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	assert.True(t, ok)
	assert.Equal(t, 7, status.FromProcessState(exitErr.ProcessState))
}

func TestFromProcessState_Success(t *testing.T) {
	cmd := exec.Command("true")
	require := cmd.Run()
	assert.NoError(t, require)
	assert.Equal(t, 0, status.FromProcessState(cmd.ProcessState))
}

func TestFromProcessState_KilledBySignal(t *testing.T) {
	cmd := exec.Command("sh", "-c", "kill -TERM $$")
	err := cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected ExitError, got %v", err)
	}
	assert.Equal(t, 128+15, status.FromProcessState(exitErr.ProcessState))
}

func TestFromProcessState_Nil(t *testing.T) {
	assert.Equal(t, 1, status.FromProcessState(nil))
}

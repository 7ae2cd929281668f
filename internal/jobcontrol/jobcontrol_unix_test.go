//go:build unix

package jobcontrol_test

import (
	"os/exec"
	"testing"
	"time"

	"github.com/kaliedev/jsh/internal/jobcontrol"
	"github.com/stretchr/testify/require"
)

func TestSetProcessGroup_NewLeader(t *testing.T) {
	cmd := exec.Command("sleep", "0.2")
	jobcontrol.PrepareCommand(cmd, 0)
	require.NoError(t, cmd.Start())
	defer cmd.Wait()

	pid := cmd.Process.Pid
	require.NoError(t, jobcontrol.SetProcessGroup(pid, 0))

	pgid, err := jobcontrol.ProcessGroupID(pid)
	require.NoError(t, err)
	require.Equal(t, pid, pgid)
}

func TestWaitForPid_Exits(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 3")
	require.NoError(t, cmd.Start())

	outcome, err := jobcontrol.WaitForPid(cmd.Process.Pid)
	require.NoError(t, err)
	require.True(t, outcome.Exited)
	require.Equal(t, 3, outcome.Code)
}

func TestWaitForPid_Stopped(t *testing.T) {
	cmd := exec.Command("sh", "-c", "kill -STOP $$; exit 0")
	jobcontrol.PrepareCommand(cmd, 0)
	require.NoError(t, cmd.Start())

	outcome, err := jobcontrol.WaitForPid(cmd.Process.Pid)
	require.NoError(t, err)
	require.True(t, outcome.Stopped)

	require.NoError(t, jobcontrol.SendContinueToGroup(cmd.Process.Pid))
	time.Sleep(50 * time.Millisecond)
	cmd.Process.Kill()
	cmd.Wait()
}

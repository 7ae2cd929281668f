package builtins_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kaliedev/jsh/internal/builtins"
	"github.com/kaliedev/jsh/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBuiltin(t *testing.T) {
	r := builtins.New()
	assert.True(t, r.IsBuiltin("cd"))
	assert.True(t, r.IsBuiltin("jobs"))
	assert.False(t, r.IsBuiltin("grep"))
}

func TestIsStateful(t *testing.T) {
	r := builtins.New()
	assert.True(t, r.IsStateful("cd"))
	assert.True(t, r.IsStateful("export"))
	assert.False(t, r.IsStateful("echo"))
	assert.False(t, r.IsStateful("pwd"))
}

func TestRun_Echo(t *testing.T) {
	r := builtins.New()
	var out bytes.Buffer
	table := jobs.NewTable(os.Stdout)
	res := r.Run(context.Background(), "echo", []string{"a", "b"}, nil, &out, &out, table)
	assert.True(t, res.Handled)
	assert.Equal(t, 0, res.Outcome.Code)
	assert.Equal(t, "a b\n", out.String())
}

func TestRun_CdAndPwd(t *testing.T) {
	dir := t.TempDir()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(origWd)

	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out bytes.Buffer

	res := r.Run(context.Background(), "cd", []string{dir}, nil, &out, &out, table)
	require.Equal(t, 0, res.Outcome.Code)

	out.Reset()
	res = r.Run(context.Background(), "pwd", nil, nil, &out, &out, table)
	require.Equal(t, 0, res.Outcome.Code)

	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	resolvedOut, err := filepath.EvalSymlinks(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, resolvedDir, resolvedOut)
}

func TestRun_CdDashRequiresOldpwd(t *testing.T) {
	os.Unsetenv("OLDPWD")
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out bytes.Buffer
	res := r.Run(context.Background(), "cd", []string{"-"}, nil, &out, &out, table)
	assert.Equal(t, 1, res.Outcome.Code)
}

func TestRun_ExportAndUnset(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out bytes.Buffer

	res := r.Run(context.Background(), "export", []string{"JSH_BUILTIN_TEST=1"}, nil, &out, &out, table)
	assert.Equal(t, 0, res.Outcome.Code)
	assert.Equal(t, "1", os.Getenv("JSH_BUILTIN_TEST"))

	res = r.Run(context.Background(), "unset", []string{"JSH_BUILTIN_TEST"}, nil, &out, &out, table)
	assert.Equal(t, 0, res.Outcome.Code)
	_, ok := os.LookupEnv("JSH_BUILTIN_TEST")
	assert.False(t, ok)
}

func TestRun_ExitNumericAndNonNumeric(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out bytes.Buffer

	res := r.Run(context.Background(), "exit", []string{"3"}, nil, &out, &out, table)
	assert.True(t, res.Outcome.Exit)
	assert.Equal(t, 3, res.Outcome.Code)

	res = r.Run(context.Background(), "exit", []string{"nope"}, nil, &out, &out, table)
	assert.True(t, res.Outcome.Exit)
	assert.Equal(t, 2, res.Outcome.Code)
}

func TestRun_TypeBuiltinAndExternal(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out, errOut bytes.Buffer

	res := r.Run(context.Background(), "type", []string{"cd", "definitely_not_a_real_command_xyz"}, nil, &out, &errOut, table)
	assert.Equal(t, 1, res.Outcome.Code)
	assert.Contains(t, out.String(), "cd is a shell builtin")
}

func TestRun_JobsListsRunningJobs(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	table.Add(1234, 1234, "sleep 100", func() (bool, int, bool, error) { return false, 0, false, nil })

	var out bytes.Buffer
	res := r.Run(context.Background(), "jobs", nil, nil, &out, &out, table)
	assert.Equal(t, 0, res.Outcome.Code)
	assert.Contains(t, out.String(), "sleep 100")
	assert.Contains(t, out.String(), "[1]")
}

func TestRun_FgUnknownJob(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out bytes.Buffer
	res := r.Run(context.Background(), "fg", []string{"%99"}, nil, &out, &out, table)
	assert.Equal(t, 1, res.Outcome.Code)
}

func TestRun_BgRequiresStoppedJob(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	table.Add(1, 1, "sleep 100", func() (bool, int, bool, error) { return false, 0, false, nil })

	var out bytes.Buffer
	res := r.Run(context.Background(), "bg", []string{"%1"}, nil, &out, &out, table)
	assert.Equal(t, 1, res.Outcome.Code)
}

func TestRun_WaitNoJobsReturnsZero(t *testing.T) {
	r := builtins.New()
	table := jobs.NewTable(os.Stdout)
	var out bytes.Buffer
	res := r.Run(context.Background(), "wait", nil, nil, &out, &out, table)
	assert.Equal(t, 0, res.Outcome.Code)
}

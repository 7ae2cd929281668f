package shell_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaliedev/jsh/internal/builtins"
	"github.com/kaliedev/jsh/internal/jobs"
	"github.com/kaliedev/jsh/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawExpand performs no expansion at all; executor tests exercise real
// processes and redirection, not expand.Words, which has its own tests.
func rawExpand(words []shell.Token, lastExitCode int) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Value
	}
	return out
}

// envExpand simulates just enough expansion ($VAR substitution plus
// unquoted word-splitting) to exercise the executor's redirect-operand
// expansion without depending on internal/expand.
func envExpand(words []shell.Token, lastExitCode int) []string {
	var out []string
	for _, w := range words {
		out = append(out, strings.Fields(os.ExpandEnv(w.Value))...)
	}
	return out
}

func newRunner(t *testing.T) *shell.Runner {
	t.Helper()
	return shell.NewRunner(jobs.NewTable(os.Stdout), builtins.New(), rawExpand)
}

func runLine(t *testing.T, r *shell.Runner, line string) shell.Outcome {
	t.Helper()
	chain, err := shell.ParseChain(line)
	require.NoError(t, err)
	return r.RunChain(context.Background(), chain)
}

func TestRunChain_ExternalCommandToFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	r := newRunner(t)
	outcome := runLine(t, r, "sh -c 'echo hello world' > "+out)
	assert.Equal(t, 0, outcome.Code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(data))
}

func TestRunChain_ExitCodeFromShell(t *testing.T) {
	r := newRunner(t)
	outcome := runLine(t, r, "sh -c 'exit 7'")
	assert.Equal(t, 7, outcome.Code)
}

func TestRunChain_CommandNotFound(t *testing.T) {
	r := newRunner(t)
	outcome := runLine(t, r, "definitely_not_a_real_command_xyz")
	assert.Equal(t, 127, outcome.Code)
}

func TestRunChain_Pipeline(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	r := newRunner(t)
	outcome := runLine(t, r, `printf 'a\nb\nc\n' | wc -l > `+out)
	assert.Equal(t, 0, outcome.Code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(string(data)))
}

func TestRunChain_AndShortCircuitsOnFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	r := newRunner(t)
	outcome := runLine(t, r, "false && touch "+marker)
	assert.NotEqual(t, 0, outcome.Code)
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err))
}

func TestRunChain_OrRunsOnFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	r := newRunner(t)
	outcome := runLine(t, r, "false || touch "+marker)
	assert.Equal(t, 0, outcome.Code)
	_, err := os.Stat(marker)
	assert.NoError(t, err)
}

func TestRunChain_BuiltinPwdAndCd(t *testing.T) {
	dir := t.TempDir()
	dir2 := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(dir2, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(origWd)

	r := newRunner(t)
	outcome := runLine(t, r, "cd "+dir2)
	require.Equal(t, 0, outcome.Code)

	out := filepath.Join(dir, "pwd.txt")
	outcome = runLine(t, r, "pwd > "+out)
	require.Equal(t, 0, outcome.Code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir2)
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, resolved, gotResolved)
}

func TestRunChain_ExitBuiltinEscapesLoop(t *testing.T) {
	r := newRunner(t)
	outcome := runLine(t, r, "exit 5")
	assert.True(t, outcome.Exit)
	assert.Equal(t, 5, outcome.Code)
}

func TestRunChain_RedirectOperandIsExpanded(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	t.Setenv("JSH_TEST_OUT", outPath)

	r := shell.NewRunner(jobs.NewTable(os.Stdout), builtins.New(), envExpand)
	outcome := runLine(t, r, "echo hi > $JSH_TEST_OUT")
	assert.Equal(t, 0, outcome.Code)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))
}

func TestRunChain_AmbiguousRedirectOperandErrors(t *testing.T) {
	t.Setenv("JSH_TEST_MULTI", "a b")

	r := shell.NewRunner(jobs.NewTable(os.Stdout), builtins.New(), envExpand)
	outcome := runLine(t, r, "echo hi > $JSH_TEST_MULTI")
	assert.Equal(t, 1, outcome.Code)
}

// TestRunChain_PipelineClosesIntermediateReadEnds guards spec.md §8
// scenario 6: if the shell leaks its own copy of a pipe's read end, the
// upstream writer never receives SIGPIPE once the downstream reader
// exits, and this hangs forever instead of completing.
func TestRunChain_PipelineClosesIntermediateReadEnds(t *testing.T) {
	r := newRunner(t)

	done := make(chan shell.Outcome, 1)
	go func() { done <- runLine(t, r, "yes | head -1") }()

	select {
	case outcome := <-done:
		assert.Equal(t, 0, outcome.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish: shell likely leaked a pipe read end, preventing SIGPIPE")
	}
}

func TestRunChain_BackgroundJobRegistersInTable(t *testing.T) {
	table := jobs.NewTable(os.Stdout)
	r := shell.NewRunner(table, builtins.New(), rawExpand)

	outcome := runLine(t, r, "sh -c 'sleep 0.2' &")
	assert.Equal(t, 0, outcome.Code)
	assert.Equal(t, 1, table.Len())
}

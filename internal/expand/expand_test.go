package expand_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/kaliedev/jsh/internal/expand"
	"github.com/kaliedev/jsh/internal/shell"
	"github.com/stretchr/testify/assert"
)

func words(t *testing.T, line string) []shell.Token {
	t.Helper()
	toks, err := shell.Tokenize(line)
	assert.NoError(t, err)
	return toks
}

func TestWords_TildeAlone(t *testing.T) {
	got := expand.Words(words(t, "~"), 0)
	assert.NotEqual(t, "~", got[0])
}

func TestWords_TildeWithPath(t *testing.T) {
	got := expand.Words(words(t, "~/projects"), 0)
	assert.NotEqual(t, byte('~'), got[0][0])
}

func TestWords_VariableSimple(t *testing.T) {
	os.Setenv("JSH_TEST_VAR", "hello")
	defer os.Unsetenv("JSH_TEST_VAR")
	got := expand.Words(words(t, "$JSH_TEST_VAR"), 0)
	assert.Equal(t, []string{"hello"}, got)
}

func TestWords_VariableBraced(t *testing.T) {
	os.Setenv("JSH_TEST_VAR2", "world")
	defer os.Unsetenv("JSH_TEST_VAR2")
	got := expand.Words(words(t, "${JSH_TEST_VAR2}!"), 0)
	assert.Equal(t, []string{"world!"}, got)
}

func TestWords_ExitCode(t *testing.T) {
	got := expand.Words(words(t, "$?"), 42)
	assert.Equal(t, []string{"42"}, got)
}

func TestWords_Pid(t *testing.T) {
	got := expand.Words(words(t, "$$"), 0)
	assert.Equal(t, fmt.Sprint(os.Getpid()), got[0])
}

func TestWords_SingleQuotedNoExpansion(t *testing.T) {
	got := expand.Words(words(t, `'$HOME'`), 0)
	assert.Equal(t, []string{"$HOME"}, got)
}

func TestWords_DoubleQuotedExpandsButNoGlob(t *testing.T) {
	got := expand.Words(words(t, `"*.go"`), 0)
	assert.Equal(t, []string{"*.go"}, got)
}

func TestWords_UnquotedSplitOnVariable(t *testing.T) {
	os.Setenv("JSH_SPLIT_TEST", "alpha beta")
	defer os.Unsetenv("JSH_SPLIT_TEST")
	got := expand.Words(words(t, "$JSH_SPLIT_TEST"), 0)
	assert.Equal(t, []string{"alpha", "beta"}, got)
}

func TestWords_NoGlobMatchKeepsLiteral(t *testing.T) {
	got := expand.Words(words(t, "*.definitely_not_a_real_extension_xyz"), 0)
	assert.Equal(t, []string{"*.definitely_not_a_real_extension_xyz"}, got)
}

func TestWords_UndefinedVariableIsEmpty(t *testing.T) {
	os.Unsetenv("JSH_DEFINITELY_NOT_SET_XYZ")
	got := expand.Words(words(t, "$JSH_DEFINITELY_NOT_SET_XYZ"), 0)
	assert.Equal(t, []string{""}, got)
}

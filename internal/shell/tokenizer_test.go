package shell_test

import (
	"testing"

	"github.com/kaliedev/jsh/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typesOf(toks []shell.Token) []shell.TokenType {
	out := make([]shell.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenize_SimpleWords(t *testing.T) {
	toks, err := shell.Tokenize("echo hello world")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	for _, tok := range toks {
		assert.Equal(t, shell.TokenWord, tok.Type)
	}
}

func TestTokenize_SingleAndDoubleQuotes(t *testing.T) {
	toks, err := shell.Tokenize(`echo 'a b' "c d"`)
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, shell.QuoteSingle, toks[1].Quote)
	assert.Equal(t, "a b", toks[1].Value)
	assert.Equal(t, shell.QuoteDouble, toks[2].Quote)
	assert.Equal(t, "c d", toks[2].Value)
}

func TestTokenize_RedirectOperators(t *testing.T) {
	toks, err := shell.Tokenize("cmd 2>&1 > out.txt <<< hi")
	require.NoError(t, err)
	gotTypes := typesOf(toks)
	assert.Contains(t, gotTypes, shell.TokenRedirectErrToOut)
	assert.Contains(t, gotTypes, shell.TokenRedirectOut)
	assert.Contains(t, gotTypes, shell.TokenHereString)
}

func TestTokenize_OneAndTwoArrowVariants(t *testing.T) {
	toks, err := shell.Tokenize("cmd 1>&2 >&1 >&2")
	require.NoError(t, err)
	gotTypes := typesOf(toks)
	assert.Contains(t, gotTypes, shell.TokenRedirectOutToErr)
	assert.Contains(t, gotTypes, shell.TokenRedirectOutDupOut)
	assert.Contains(t, gotTypes, shell.TokenRedirectOutDupErr)
}

func TestStripTrailingBackground(t *testing.T) {
	toks, err := shell.Tokenize("sleep 5 &")
	require.NoError(t, err)
	stripped, bg := shell.StripTrailingBackground(toks)
	assert.True(t, bg)
	assert.Len(t, stripped, 2)
}

func TestStripTrailingBackground_NoTrailingAmp(t *testing.T) {
	toks, err := shell.Tokenize("echo hi")
	require.NoError(t, err)
	stripped, bg := shell.StripTrailingBackground(toks)
	assert.False(t, bg)
	assert.Len(t, stripped, 2)
}

func TestSplitByChain_OperatorsRecorded(t *testing.T) {
	toks, err := shell.Tokenize("a && b || c ; d")
	require.NoError(t, err)
	chained := shell.SplitByChain(toks)
	require.Len(t, chained, 4)
	assert.Equal(t, shell.ChainAnd, chained[0].Operator)
	assert.Equal(t, shell.ChainOr, chained[1].Operator)
	assert.Equal(t, shell.ChainSeq, chained[2].Operator)
	assert.Equal(t, shell.ChainNone, chained[3].Operator)
}

func TestSplitByPipe(t *testing.T) {
	toks, err := shell.Tokenize("a | b | c")
	require.NoError(t, err)
	segments := shell.SplitByPipe(toks)
	require.Len(t, segments, 3)
}

package shell_test

import (
	"testing"

	"github.com/kaliedev/jsh/internal/redirect"
	"github.com/kaliedev/jsh/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChain_SimplePipeline(t *testing.T) {
	chain, err := shell.ParseChain("ls -la")
	require.NoError(t, err)
	require.Len(t, chain.Entries, 1)
	require.Len(t, chain.Entries[0].Pipeline.Segments, 1)
	assert.False(t, chain.Background)
}

func TestParseChain_TrailingBackground(t *testing.T) {
	chain, err := shell.ParseChain("sleep 1 &")
	require.NoError(t, err)
	assert.True(t, chain.Background)
}

func TestParseChain_PipelineStages(t *testing.T) {
	chain, err := shell.ParseChain("cat file | grep foo | wc -l")
	require.NoError(t, err)
	require.Len(t, chain.Entries, 1)
	assert.Len(t, chain.Entries[0].Pipeline.Segments, 3)
}

func TestParseChain_AndOrSequence(t *testing.T) {
	chain, err := shell.ParseChain("false && echo a || echo b")
	require.NoError(t, err)
	require.Len(t, chain.Entries, 3)
	assert.Equal(t, shell.ChainSeq, chain.Entries[0].Connector)
	assert.Equal(t, shell.ChainAnd, chain.Entries[1].Connector)
	assert.Equal(t, shell.ChainOr, chain.Entries[2].Connector)
}

func TestParseChain_Redirection(t *testing.T) {
	chain, err := shell.ParseChain("cmd > out.txt 2>> err.txt < in.txt")
	require.NoError(t, err)
	seg := chain.Entries[0].Pipeline.Segments[0]
	require.Len(t, seg.Redirs, 3)
	assert.Equal(t, redirect.TargetFile, seg.Redirs[0].Target)
	assert.Equal(t, redirect.TargetFileAppend, seg.Redirs[1].Target)
	assert.Equal(t, redirect.TargetFileRead, seg.Redirs[2].Target)
}

func TestParseChain_SpacedFdPrefix(t *testing.T) {
	chain, err := shell.ParseChain("cmd 2 > err.txt")
	require.NoError(t, err)
	seg := chain.Entries[0].Pipeline.Segments[0]
	require.Len(t, seg.Redirs, 1)
	assert.Equal(t, redirect.FdStderr, seg.Redirs[0].Fd)
}

func TestParseChain_RedirectionKeepsOperandTokenForExpansion(t *testing.T) {
	chain, err := shell.ParseChain("cmd > $OUT")
	require.NoError(t, err)
	seg := chain.Entries[0].Pipeline.Segments[0]
	require.Len(t, seg.RedirOperands, 1)
	require.NotNil(t, seg.RedirOperands[0])
	assert.Equal(t, "$OUT", seg.RedirOperands[0].Value)
	// Path still holds the raw token text; the executor expands it later.
	assert.Equal(t, "$OUT", seg.Redirs[0].Path)
}

func TestParseChain_FdDupRedirectHasNoOperand(t *testing.T) {
	chain, err := shell.ParseChain("cmd 2>&1")
	require.NoError(t, err)
	seg := chain.Entries[0].Pipeline.Segments[0]
	require.Len(t, seg.RedirOperands, 1)
	assert.Nil(t, seg.RedirOperands[0])
}

func TestParseChain_SpacedFdDup(t *testing.T) {
	chain, err := shell.ParseChain("cmd 2 >&1")
	require.NoError(t, err)
	seg := chain.Entries[0].Pipeline.Segments[0]
	require.Len(t, seg.Redirs, 1)
	assert.Equal(t, redirect.FdStderr, seg.Redirs[0].Fd)
	assert.Equal(t, redirect.FdStdout, seg.Redirs[0].DupFd)
}

func TestParseChain_OutputRedirectMidPipelineRejected(t *testing.T) {
	_, err := shell.ParseChain("cmd > out.txt | wc -l")
	assert.Error(t, err)
}

func TestParseChain_EmptyPipeSegmentRejected(t *testing.T) {
	_, err := shell.ParseChain("cmd1 | | cmd2")
	assert.Error(t, err)
}

func TestParseChain_BlankLine(t *testing.T) {
	chain, err := shell.ParseChain("   ")
	require.NoError(t, err)
	assert.Nil(t, chain)
}

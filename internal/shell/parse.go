package shell

import (
	"fmt"
	"strings"

	"github.com/kaliedev/jsh/internal/redirect"
)

// Segment is a single command in a pipeline: its argument words (still
// unexpanded — tilde/variable/glob expansion is internal/expand's job)
// and the redirections parsed off of it.
type Segment struct {
	Words  []Token
	Redirs []redirect.Redirection
	// RedirOperands holds, for each entry in Redirs, the original operand
	// token (filename or here-string text) still needing expansion by
	// internal/expand before the redirection is resolved; nil for entries
	// with no operand of their own (fd-duplication redirects like 2>&1).
	RedirOperands []*Token
}

// addRedir appends a redirection together with the raw operand token the
// executor must still expand (nil when the redirection has no operand,
// e.g. an fd-duplication like 2>&1).
func (seg *Segment) addRedir(r redirect.Redirection, operand *Token) {
	seg.Redirs = append(seg.Redirs, r)
	seg.RedirOperands = append(seg.RedirOperands, operand)
}

// Pipeline is one or more Segments connected by `|`.
type Pipeline struct {
	Segments []*Segment
	Raw      string
}

// ChainEntry is a Pipeline together with the connector that decides
// whether it runs, based on the previous entry's exit code.
type ChainEntry struct {
	Pipeline  *Pipeline
	Connector ChainOperator
}

// Chain is a full parsed command line: entries connected by &&/||/;,
// plus whether the whole line should run in the background.
type Chain struct {
	Entries    []ChainEntry
	Background bool
	Raw        string
}

// ParseChain tokenizes and parses a full input line per spec.md §4.G
// steps 1-3: strip a trailing backgrounding `&`, split on chain
// operators, then split each entry on `|` and extract redirections.
// Every entry is validated up front so a syntax error anywhere in the
// chain is reported before any part of it runs.
func ParseChain(line string) (*Chain, error) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return nil, nil
	}

	tokens, err := Tokenize(raw)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	tokens, background := StripTrailingBackground(tokens)

	chained := SplitByChain(tokens)
	chain := &Chain{Background: background, Raw: raw}

	for _, cc := range chained {
		if len(cc.Tokens) == 0 {
			return nil, fmt.Errorf("jsh: syntax error near unexpected token `%s'", connectorToken(cc.Operator))
		}
		pipeline, err := parsePipeline(cc.Tokens)
		if err != nil {
			return nil, err
		}
		chain.Entries = append(chain.Entries, ChainEntry{Pipeline: pipeline})
	}

	// Connector recorded on an entry describes the operator BEFORE it,
	// driven by the operator that followed the PREVIOUS token group.
	for i := 1; i < len(chained); i++ {
		chain.Entries[i].Connector = chained[i-1].Operator
	}
	if len(chain.Entries) > 0 {
		chain.Entries[0].Connector = ChainSeq
	}

	return chain, nil
}

func connectorToken(op ChainOperator) string {
	switch op {
	case ChainAnd:
		return "&&"
	case ChainOr:
		return "||"
	case ChainSeq:
		return ";"
	default:
		return ""
	}
}

func parsePipeline(tokens []Token) (*Pipeline, error) {
	segmentsTokens := SplitByPipe(tokens)
	pipeline := &Pipeline{}

	for i, segTokens := range segmentsTokens {
		if len(segTokens) == 0 {
			return nil, fmt.Errorf("jsh: syntax error near unexpected token `|'")
		}
		seg, err := parseSegment(segTokens, i == 0, i == len(segmentsTokens)-1)
		if err != nil {
			return nil, err
		}
		pipeline.Segments = append(pipeline.Segments, seg)
	}
	return pipeline, nil
}

// parseSegment extracts the command words and redirections out of one
// pipeline stage's tokens, folding in the spaced fd-prefix supplement
// (`2 > file`, `2 >> file`, `2 >&1`, `1 >&2`) grounded on
// original_source/src/redirect.rs before the main extraction pass.
func parseSegment(tokens []Token, isFirst, isLast bool) (*Segment, error) {
	tokens = foldSpacedFdPrefix(tokens)
	seg := &Segment{}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch tok.Type {
		case TokenWord:
			seg.Words = append(seg.Words, tok)

		case TokenRedirectIn:
			operand, err := expectOperand(tokens, i, "<")
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFileRead, Fd: redirect.FdStdin, Path: operand.Value,
			}, &operand)
			i++

		case TokenHereString:
			operand, err := expectOperand(tokens, i, "<<<")
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetHereString, Fd: redirect.FdStdin, Text: operand.Value,
			}, &operand)
			i++

		case TokenRedirectOut:
			if !isLast {
				return nil, fmt.Errorf("jsh: output redirection '>' only allowed on last command in pipeline")
			}
			operand, err := expectOperand(tokens, i, ">")
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFile, Fd: redirect.FdStdout, Path: operand.Value,
			}, &operand)
			i++

		case TokenRedirectAppend:
			if !isLast {
				return nil, fmt.Errorf("jsh: output redirection '>>' only allowed on last command in pipeline")
			}
			operand, err := expectOperand(tokens, i, ">>")
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFileAppend, Fd: redirect.FdStdout, Path: operand.Value,
			}, &operand)
			i++

		case TokenRedirectErr:
			if !isLast {
				return nil, fmt.Errorf("jsh: error redirection '2>' only allowed on last command in pipeline")
			}
			operand, err := expectOperand(tokens, i, "2>")
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFile, Fd: redirect.FdStderr, Path: operand.Value,
			}, &operand)
			i++

		case TokenRedirectErrAppend:
			if !isLast {
				return nil, fmt.Errorf("jsh: error redirection '2>>' only allowed on last command in pipeline")
			}
			operand, err := expectOperand(tokens, i, "2>>")
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFileAppend, Fd: redirect.FdStderr, Path: operand.Value,
			}, &operand)
			i++

		case TokenRedirectAll:
			if !isLast {
				return nil, fmt.Errorf("jsh: combined redirection only allowed on last command in pipeline")
			}
			operand, err := expectOperand(tokens, i, tok.Value)
			if err != nil {
				return nil, err
			}
			seg.addRedir(redirect.Redirection{Target: redirect.TargetFile, Fd: redirect.FdStdout, Path: operand.Value}, &operand)
			seg.addRedir(redirect.Redirection{Target: redirect.TargetFd, Fd: redirect.FdStderr, DupFd: redirect.FdStdout}, nil)
			i++

		case TokenRedirectErrToOut:
			if !isLast {
				return nil, fmt.Errorf("jsh: '2>&1' only allowed on last command in pipeline")
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFd, Fd: redirect.FdStderr, DupFd: redirect.FdStdout,
			}, nil)

		case TokenRedirectOutToErr:
			if !isLast {
				return nil, fmt.Errorf("jsh: '1>&2' only allowed on last command in pipeline")
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFd, Fd: redirect.FdStdout, DupFd: redirect.FdStderr,
			}, nil)

		case TokenRedirectOutDupOut:
			if !isLast {
				return nil, fmt.Errorf("jsh: '>&1' only allowed on last command in pipeline")
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFd, Fd: redirect.FdStdout, DupFd: redirect.FdStdout,
			}, nil)

		case TokenRedirectOutDupErr:
			if !isLast {
				return nil, fmt.Errorf("jsh: '>&2' only allowed on last command in pipeline")
			}
			seg.addRedir(redirect.Redirection{
				Target: redirect.TargetFd, Fd: redirect.FdStdout, DupFd: redirect.FdStderr,
			}, nil)
		}
	}

	if len(seg.Words) == 0 {
		return nil, fmt.Errorf("jsh: syntax error: empty command")
	}
	_ = isFirst // retained for symmetry with isLast; stdin '<' is valid on any stage today
	return seg, nil
}

// expectOperand returns the raw word token following a redirect operator
// (the filename or here-string text), still unexpanded — internal/expand
// runs over it at execution time, the same collaborator command words go
// through, so `> $OUT` and `< ~/file` work (spec.md §6).
func expectOperand(tokens []Token, i int, op string) (Token, error) {
	if i+1 >= len(tokens) || tokens[i+1].Type != TokenWord {
		return Token{}, fmt.Errorf("jsh: syntax error: missing filename after '%s'", op)
	}
	return tokens[i+1], nil
}

// foldSpacedFdPrefix merges a standalone "1"/"2" word token immediately
// preceding a redirect operator into the fd-2 (or fd-1) form of that
// operator, so `2 > file`, `2 >> file`, `2 >&1`, and `1 >&2` behave
// identically to their unspaced counterparts.
func foldSpacedFdPrefix(tokens []Token) []Token {
	var out []Token
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == TokenWord && tok.Quote == QuoteNone && i+1 < len(tokens) {
			next := tokens[i+1]
			switch {
			case tok.Value == "2" && next.Type == TokenRedirectOut:
				out = append(out, Token{Type: TokenRedirectErr, Value: "2>"})
				i++
				continue
			case tok.Value == "2" && next.Type == TokenRedirectAppend:
				out = append(out, Token{Type: TokenRedirectErrAppend, Value: "2>>"})
				i++
				continue
			case tok.Value == "2" && next.Type == TokenRedirectOutDupOut:
				out = append(out, Token{Type: TokenRedirectErrToOut, Value: "2>&1"})
				i++
				continue
			case tok.Value == "1" && next.Type == TokenRedirectOutDupErr:
				out = append(out, Token{Type: TokenRedirectOutToErr, Value: "1>&2"})
				i++
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

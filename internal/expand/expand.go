// Package expand implements the tilde/variable/glob expansion collaborator
// spec.md §6 describes but excludes from the execution engine's own
// scope. Grounded on original_source/src/expander.rs, translated from
// Rust's WordSegment model onto this shell's Token/QuoteKind model, using
// doublestar for glob matching (the teacher's choice over stdlib
// path/filepath.Glob, see SPEC_FULL.md §3).
package expand

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kaliedev/jsh/internal/shell"
)

// Words expands a list of tokenized words into final argument strings,
// applying tilde, variable, word-splitting, and glob expansion according
// to each token's quote context. lastExitCode backs `$?`.
func Words(tokens []shell.Token, lastExitCode int) []string {
	var out []string
	for _, tok := range tokens {
		out = append(out, word(tok, lastExitCode)...)
	}
	return out
}

func word(tok shell.Token, lastExitCode int) []string {
	switch tok.Quote {
	case shell.QuoteSingle:
		return []string{tok.Value}

	case shell.QuoteDouble:
		return []string{variables(tok.Value, lastExitCode)}

	default:
		text := variables(tilde(tok.Value), lastExitCode)
		var fields []string
		if hasUnquotedExpansion(tok.Value) {
			fields = strings.Fields(text)
			if len(fields) == 0 {
				fields = []string{""}
			}
		} else {
			fields = []string{text}
		}

		var result []string
		for _, f := range fields {
			result = append(result, globs(f)...)
		}
		return result
	}
}

// hasUnquotedExpansion reports whether raw (pre-expansion) text contains
// a variable reference, since only expanded unquoted text participates
// in word-splitting — a literal string with no `$` must not be split by
// whitespace it already contained before any expansion happened.
func hasUnquotedExpansion(raw string) bool {
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '$' || i+1 >= len(runes) {
			continue
		}
		next := runes[i+1]
		switch {
		case next == '?' || next == '$' || next == '0':
			return true
		case next == '{':
			for j := i + 2; j < len(runes); j++ {
				if runes[j] == '}' {
					return true
				}
			}
		case isNameStart(next):
			return true
		}
	}
	return false
}

func isNameStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isNameChar(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9')
}

// tilde expands a leading `~` or `~/...` to $HOME (or $USERPROFILE, or a
// literal `~` if neither is set). `~user` forms are not supported.
func tilde(token string) string {
	if !strings.HasPrefix(token, "~") {
		return token
	}
	home := homeDir()
	if token == "~" {
		return home
	}
	if strings.HasPrefix(token, "~/") || strings.HasPrefix(token, `~\`) {
		return home + token[1:]
	}
	return token
}

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if h := os.Getenv("USERPROFILE"); h != "" {
		return h
	}
	return "~"
}

// variables expands `$NAME`, `${NAME}`, `$?`, `$$`, and `$0` references.
// An unmatched `${` is left literal; an undefined variable expands to
// the empty string.
func variables(input string, lastExitCode int) string {
	var out strings.Builder
	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '$' {
			out.WriteRune(runes[i])
			continue
		}
		if i+1 >= len(runes) {
			out.WriteRune('$')
			continue
		}
		next := runes[i+1]
		switch {
		case next == '?':
			out.WriteString(strconv.Itoa(lastExitCode))
			i++
		case next == '$':
			out.WriteString(strconv.Itoa(os.Getpid()))
			i++
		case next == '0':
			out.WriteString("jsh")
			i++
		case next == '{':
			j := i + 2
			closed := false
			for ; j < len(runes); j++ {
				if runes[j] == '}' {
					closed = true
					break
				}
			}
			if !closed {
				out.WriteString("${")
				out.WriteString(string(runes[i+2:]))
				i = len(runes)
				break
			}
			name := string(runes[i+2 : j])
			if name == "" {
				out.WriteString("${}")
			} else {
				out.WriteString(os.Getenv(name))
			}
			i = j
		case isNameStart(next):
			j := i + 1
			for j < len(runes) && isNameChar(runes[j]) {
				j++
			}
			out.WriteString(os.Getenv(string(runes[i+1 : j])))
			i = j - 1
		default:
			out.WriteRune('$')
		}
	}
	return out.String()
}

func containsGlobChars(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// globs expands a single glob pattern via doublestar. No matches keeps
// the pattern literal (bash behavior); non-glob text passes through.
func globs(pattern string) []string {
	if !containsGlobChars(pattern) {
		return []string{pattern}
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil || len(matches) == 0 {
		return []string{pattern}
	}
	sort.Strings(matches)
	return matches
}

// Command jsh is an interactive POSIX-flavored shell: tokenizer, parser,
// pipeline/command executors, builtin dispatcher, job control, and a
// readline-backed REPL, wired together per spec.md §4.J. Grounded on the
// teacher's cmd/drime/main.go (flag handling, config load, shell
// construction) stripped of its cloud-storage bootstrap.
package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/kaliedev/jsh/internal/builtins"
	"github.com/kaliedev/jsh/internal/config"
	"github.com/kaliedev/jsh/internal/expand"
	"github.com/kaliedev/jsh/internal/jobs"
	"github.com/kaliedev/jsh/internal/shell"
	"github.com/kaliedev/jsh/internal/shellsignal"
	"github.com/kaliedev/jsh/internal/ui"
)

// version is reported by --version. jsh has no release automation of its
// own (spec.md's Non-goals exclude a packaging story), so this is a bare
// constant rather than a build-stamped value.
const version = "0.1.0"

func main() {
	var (
		command = pflag.StringP("command", "c", "", "run command and exit")
		noRC    = pflag.Bool("norc", false, "skip loading ~/.jsh/config.yaml")
		showVer = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVer {
		fmt.Println("jsh " + version)
		os.Exit(0)
	}

	var cfg *config.Config
	if *noRC {
		cfg = config.Default()
		cfg.NoRC = true
	} else {
		var err error
		cfg, err = config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "jsh: %v\n", err)
		}
	}
	ui.SetTheme(ui.Theme(cfg.PromptTheme))

	table := jobs.NewTable(os.Stdout)
	runner := shell.NewRunner(table, builtins.New(), expand.Words)

	if *command != "" {
		os.Exit(runOnce(runner, *command))
	}

	os.Exit(runREPL(runner, cfg))
}

// runOnce implements `jsh -c '<chain>'`: parse and run exactly one line,
// the mode runWholeChainBackground's re-exec (`self -c <raw>`) targets.
func runOnce(runner *shell.Runner, line string) int {
	chain, err := shell.ParseChain(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsh: %v\n", err)
		return 2
	}
	outcome := runner.RunChain(context.Background(), chain)
	return outcome.Code
}

// runREPL is the §4.J REPL driver: reap between prompts, read a line,
// record it to history regardless of parse success, expand history
// references and aliases, tokenize/parse, dispatch to the chain driver,
// and stop on an Exit outcome.
func runREPL(runner *shell.Runner, cfg *config.Config) int {
	historyPath, _ := config.HistoryPath()
	if cfg.HistoryFile != "" {
		historyPath = cfg.HistoryFile
	}

	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:       historyPath,
		HistoryLimit:      cfg.HistorySize,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsh: %v\n", err)
		return 1
	}
	defer rl.Close()

	var readlineActive atomic.Bool
	readlineActive.Store(true)

	policy := shellsignal.New(os.Stdout, readlineActive.Load)
	policy.Install()
	defer policy.Stop()
	defer shellsignal.Shutdown(runner.Jobs)

	history := &shell.HistoryExpander{}

	for {
		runner.Jobs.Reap()

		rl.SetPrompt(buildPrompt())

		readlineActive.Store(true)
		line, err := rl.Readline()
		readlineActive.Store(false)
		if err != nil { // io.EOF (Ctrl+D) or readline.ErrInterrupt
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if expanded, aliased := shell.ExpandAlias(line, cfg.Aliases); aliased {
			line = expanded
		}

		if strings.HasPrefix(line, "!") {
			expanded, herr := history.Expand(line, readHistoryFile(historyPath))
			if herr != nil {
				fmt.Fprintf(os.Stderr, "jsh: %v\n", herr)
				continue
			}
			if expanded != line {
				fmt.Println(expanded)
			}
			line = expanded
		}

		history.Record(line)

		chain, perr := shell.ParseChain(line)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "jsh: %v\n", perr)
			continue
		}

		outcome := runner.RunChain(context.Background(), chain)
		if outcome.Exit {
			return outcome.Code
		}
	}
	return runner.LastCode()
}

// readHistoryFile returns the persisted history (oldest first), the
// source `!N`/`!prefix` consult — readline keeps this file up to date as
// it runs, so reading it fresh each time needs no separate bookkeeping
// (grounded on the teacher's own Shell.GetHistory).
func readHistoryFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func buildPrompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	if home, herr := os.UserHomeDir(); herr == nil {
		if cwd == home {
			cwd = "~"
		} else if strings.HasPrefix(cwd, home+"/") {
			cwd = "~" + cwd[len(home):]
		}
	}

	username := "jsh"
	isRoot := os.Geteuid() == 0
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	return ui.RenderPrompt(username, cwd, isRoot)
}

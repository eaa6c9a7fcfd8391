// Package repl is the interactive read-eval loop around the shell.
package repl

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"jcsh/internal/config"
	"jcsh/internal/parser"
	"jcsh/internal/shell"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

var errPrefix = color.New(color.FgRed, color.Bold).Sprint("jcsh:")

// Run reads and executes lines until EOF or exit, and returns the last exit
// code.
func Run(sh *shell.Shell, cfg *config.Config) (int, error) {
	stop := sh.HandleSignals()
	defer stop()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt(cfg.Prompt, sh.Env()),
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return 1, fmt.Errorf("error initializing line editor: %w", err)
	}
	defer rl.Close()

	for !sh.ShouldExit() {
		sh.UpdateJobs()
		rl.SetPrompt(Prompt(cfg.Prompt, sh.Env()))

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return sh.LastExitCode(), err
		}

		if err := Eval(sh, line); err != nil {
			fmt.Fprintln(rl.Stderr(), errPrefix, err)
		}
	}

	return sh.LastExitCode(), nil
}

// Eval parses and executes one line. Blank lines are ignored.
func Eval(sh *shell.Shell, line string) error {
	cmd, err := parser.Parse(line, sh.Env().Environ())
	if errors.Is(err, parser.ErrEmpty) {
		return nil
	}
	if err != nil {
		return err
	}

	_, _, err = sh.Execute(cmd)
	return err
}

// Prompt expands tmpl: \w is the working directory with the home directory
// shown as ~, \W its last element, \$ a dollar sign.
func Prompt(tmpl string, env *shell.Env) string {
	dir := env.Dir()
	if home := env.Getenv(shell.EnvHome); home != "" {
		if dir == home {
			dir = "~"
		} else if rel, ok := strings.CutPrefix(dir, home+"/"); ok {
			dir = "~/" + rel
		}
	}

	r := strings.NewReplacer(
		`\w`, dir,
		`\W`, filepath.Base(env.Dir()),
		`\$`, "$",
	)
	return r.Replace(tmpl)
}

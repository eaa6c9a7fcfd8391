// Package parser turns one line of input into an ast.Command.
//
// Only simple commands are accepted: words, quoting, parameter expansion,
// the redirection operators < > >| >> 2> 2>| 2>>, descriptor duplication
// (<&N, >&N, 2>&N) and a trailing &. Anything else is rejected with
// ErrUnsupported.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"jcsh/internal/ast"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

var (
	// ErrEmpty is returned for lines that hold no command.
	ErrEmpty = errors.New("empty command")

	// ErrUnsupported is returned for valid shell syntax the core can't run.
	ErrUnsupported = errors.New("unsupported syntax")
)

func unsupported(what string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, what)
}

// fileOps holds the text of the redirection operators that take a file.
var fileOps = map[syntax.RedirOperator]string{
	syntax.RdrIn:  "<",
	syntax.RdrOut: ">",
	syntax.AppOut: ">>",
	syntax.ClbOut: ">|",
}

// Parse parses line, expanding parameters against environ ("KEY=value"
// pairs).
func Parse(line string, environ []string) (ast.Command, error) {
	f, err := syntax.NewParser().Parse(strings.NewReader(line), "")
	if err != nil {
		return ast.Command{}, err
	}

	switch len(f.Stmts) {
	case 0:
		return ast.Command{}, ErrEmpty
	case 1:
	default:
		return ast.Command{}, unsupported("command lists")
	}

	stmt := f.Stmts[0]
	if stmt.Negated || stmt.Coprocess {
		return ast.Command{}, unsupported("negation and coprocesses")
	}
	if stmt.Cmd == nil {
		return ast.Command{}, ErrEmpty
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return ast.Command{}, unsupported("compound commands and pipelines")
	}
	if len(call.Assigns) > 0 {
		return ast.Command{}, unsupported("variable assignments")
	}

	cfg := &expand.Config{Env: expand.ListEnviron(environ...)}
	fields, err := expand.Fields(cfg, call.Args...)
	if err != nil {
		return ast.Command{}, err
	}
	if len(fields) == 0 {
		return ast.Command{}, ErrEmpty
	}

	cmd := ast.Command{
		Name:       fields[0],
		Args:       fields[1:],
		Background: stmt.Background,
	}
	for _, r := range stmt.Redirs {
		redir, err := redirection(cfg, r)
		if err != nil {
			return ast.Command{}, err
		}
		cmd.Redirections = append(cmd.Redirections, redir)
	}
	return cmd, nil
}

func redirection(cfg *expand.Config, r *syntax.Redirect) (ast.Redirection, error) {
	n := ""
	if r.N != nil {
		n = r.N.Value
	}
	if r.Word == nil {
		return ast.Redirection{}, unsupported("here-documents")
	}
	word, err := expand.Literal(cfg, r.Word)
	if err != nil {
		return ast.Redirection{}, err
	}

	if op, ok := fileOps[r.Op]; ok {
		// 0< and 1> are spelled without the number in the operator table.
		if (n == "0" && r.Op == syntax.RdrIn) || (n == "1" && r.Op != syntax.RdrIn) {
			n = ""
		}
		stream, mode, ok := ast.ParseOperator(n + op)
		if !ok {
			return ast.Redirection{}, unsupported("redirection " + n + op)
		}
		return ast.Redirection{Target: ast.FileName(word), Stream: stream, Mode: mode}, nil
	}

	var stream ast.Stream
	switch {
	case r.Op == syntax.DplIn && (n == "" || n == "0"):
		stream = ast.Stdin
	case r.Op == syntax.DplOut && (n == "" || n == "1"):
		stream = ast.Stdout
	case r.Op == syntax.DplOut && n == "2":
		stream = ast.Stderr
	default:
		return ast.Redirection{}, unsupported("redirection operator " + r.Op.String())
	}

	fd, err := strconv.Atoi(word)
	if err != nil || fd < 0 {
		return ast.Redirection{}, unsupported("descriptor " + strconv.Quote(word))
	}
	return ast.Redirection{Target: ast.FileDescriptor(fd), Stream: stream}, nil
}

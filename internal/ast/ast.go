// Package ast holds the parsed representation of a single shell command.
package ast

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Stream is the standard stream a redirection rebinds.
type Stream int

const (
	Stdin Stream = iota
	Stdout
	Stderr
)

// Fd returns the descriptor number of the stream in the child.
func (s Stream) Fd() int {
	return int(s)
}

func (s Stream) String() string {
	switch s {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "Stream(" + strconv.Itoa(int(s)) + ")"
	}
}

// Mode selects how a file target is opened.
type Mode int

const (
	// Standard is the default for the stream: read for stdin, create and
	// truncate for stdout and stderr.
	Standard Mode = iota
	// Truncate is the clobber form (>|, 2>|).
	Truncate
	// Append opens the file with O_APPEND (>>, 2>>).
	Append
)

func (m Mode) String() string {
	switch m {
	case Standard:
		return "standard"
	case Truncate:
		return "truncate"
	case Append:
		return "append"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Target is either a file name or an already open descriptor.
type Target struct {
	path string
	fd   int
	isFd bool
}

// FileName returns a target naming a file.
func FileName(path string) Target {
	return Target{path: path}
}

// FileDescriptor returns a target naming an open descriptor of the shell.
func FileDescriptor(fd int) Target {
	return Target{fd: fd, isFd: true}
}

// Path returns the file name and true, or "" and false for descriptors.
func (t Target) Path() (string, bool) {
	return t.path, !t.isFd
}

// Descriptor returns the descriptor and true, or 0 and false for files.
func (t Target) Descriptor() (int, bool) {
	return t.fd, t.isFd
}

func (t Target) String() string {
	if t.isFd {
		return "&" + strconv.Itoa(t.fd)
	}
	return shellquote.Join(t.path)
}

// Redirection binds a stream of the command to a target.
type Redirection struct {
	Target Target
	Stream Stream
	Mode   Mode
}

// operators lists every redirection operator accepted for file targets.
var operators = map[string]struct {
	stream Stream
	mode   Mode
}{
	"<":   {Stdin, Standard},
	">":   {Stdout, Standard},
	">|":  {Stdout, Truncate},
	">>":  {Stdout, Append},
	"2>":  {Stderr, Standard},
	"2>|": {Stderr, Truncate},
	"2>>": {Stderr, Append},
}

// ParseOperator maps a redirection operator to its stream and mode.
func ParseOperator(op string) (Stream, Mode, bool) {
	v, ok := operators[op]
	return v.stream, v.mode, ok
}

// Operator renders the operator that produces r.
func (r Redirection) Operator() string {
	var b strings.Builder
	switch r.Stream {
	case Stdin:
		b.WriteString("<")
	case Stdout:
		b.WriteString(">")
	case Stderr:
		b.WriteString("2>")
	}
	if _, ok := r.Target.Descriptor(); ok {
		return b.String()
	}
	switch r.Mode {
	case Truncate:
		b.WriteString("|")
	case Append:
		b.WriteString(">")
	}
	return b.String()
}

func (r Redirection) String() string {
	if _, ok := r.Target.Descriptor(); ok {
		return r.Operator() + r.Target.String()
	}
	return r.Operator() + " " + r.Target.String()
}

// Command is one parsed simple command.
type Command struct {
	Name         string
	Args         []string
	Redirections []Redirection
	Background   bool
}

// Argv returns the argument vector with the command name prepended.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	return append(argv, c.Args...)
}

// String renders the command line, used as the job display name.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(shellquote.Join(c.Argv()...))
	for _, r := range c.Redirections {
		b.WriteString(" ")
		b.WriteString(r.String())
	}
	if c.Background {
		b.WriteString(" &")
	}
	return b.String()
}

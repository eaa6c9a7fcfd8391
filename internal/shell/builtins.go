package shell

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	ErrTooManyArgs   = errors.New("too many arguments")
	ErrNotEnoughArgs = errors.New("not enough arguments")
)

// BuiltinError is a failure reported by a builtin.
type BuiltinError struct {
	Name string
	Err  error
}

func (e *BuiltinError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *BuiltinError) Unwrap() error { return e.Err }

// Streams are the writers a builtin prints to.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// Builtin is a command implemented inside the shell. args excludes the
// command name.
type Builtin interface {
	Call(s *Shell, streams Streams, args []string) (int, error)
}

// BuiltinFunc adapts a function to Builtin.
type BuiltinFunc func(s *Shell, streams Streams, args []string) (int, error)

func (f BuiltinFunc) Call(s *Shell, streams Streams, args []string) (int, error) {
	return f(s, streams, args)
}

var _ Builtin = (BuiltinFunc)(nil)

// builtins holds every registered builtin by name.
var builtins = make(map[string]Builtin)

// LookupBuiltin returns the builtin called name, or false if name must run
// as an external program.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// Cd changes the working directory: to $HOME without arguments, to $OLDPWD
// for "-", to the argument otherwise.
func Cd(s *Shell, _ Streams, args []string) (int, error) {
	var dir string
	switch len(args) {
	case 0:
		home, ok := s.env.LookupEnv(EnvHome)
		if !ok || home == "" {
			return 1, errors.New("HOME not set")
		}
		dir = home
	case 1:
		dir = args[0]
		if dir == "-" {
			old, ok := s.env.LookupEnv(EnvOldPWD)
			if !ok || old == "" {
				return 1, errors.New("OLDPWD not set")
			}
			dir = old
		}
	default:
		return 1, ErrTooManyArgs
	}

	if err := s.env.Chdir(dir); err != nil {
		return 1, err
	}
	return 0, nil
}

// Exit requests shell termination with the given code, or the last exit
// code without arguments.
func Exit(s *Shell, _ Streams, args []string) (int, error) {
	code := s.lastExitCode
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 1, fmt.Errorf("%s: numeric argument required", args[0])
		}
		code = n
	default:
		return 1, ErrTooManyArgs
	}
	s.Exit()
	return code, nil
}

// Jobs lists the background jobs.
func Jobs(s *Shell, streams Streams, args []string) (int, error) {
	if len(args) > 0 {
		return 1, ErrTooManyArgs
	}
	s.jobs.Print(streams.Out)
	return 0, nil
}

// Kill sends a signal, SIGTERM by default, to a pid or to the process
// group of a job given as %N.
func Kill(s *Shell, _ Streams, args []string) (int, error) {
	switch {
	case len(args) == 0:
		return 1, ErrNotEnoughArgs
	case len(args) > 2:
		return 1, ErrTooManyArgs
	}

	sig := unix.SIGTERM
	target := args[0]
	if len(args) == 2 {
		var err error
		if sig, err = parseSignal(args[0]); err != nil {
			return 1, err
		}
		target = args[1]
	}

	pid, err := resolveTarget(s, target)
	if err != nil {
		return 1, err
	}
	if err := unix.Kill(pid, sig); err != nil {
		return 1, fmt.Errorf("(%s) - %w", target, err)
	}
	s.log.Printf("sent %s to %d", unix.SignalName(sig), pid)
	return 0, nil
}

// parseSignal reads -N, -NAME or -SIGNAME.
func parseSignal(arg string) (unix.Signal, error) {
	spec, ok := strings.CutPrefix(arg, "-")
	if !ok || spec == "" {
		return 0, fmt.Errorf("%s: invalid signal specification", arg)
	}

	if n, err := strconv.Atoi(spec); err == nil {
		sig := unix.Signal(n)
		if n != 0 && unix.SignalName(sig) == "" {
			return 0, fmt.Errorf("%s: invalid signal specification", spec)
		}
		return sig, nil
	}

	name := strings.ToUpper(spec)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("%s: invalid signal specification", spec)
	}
	return sig, nil
}

// resolveTarget turns a kill operand into a kill(2) pid: a negative
// process group for %N, the pid itself otherwise.
func resolveTarget(s *Shell, target string) (int, error) {
	if jobSpec, ok := strings.CutPrefix(target, "%"); ok {
		id, err := strconv.Atoi(jobSpec)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid job id", target)
		}
		pgid, err := s.JobPgid(id)
		if err != nil {
			return 0, err
		}
		return -pgid, nil
	}

	pid, err := strconv.Atoi(target)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%s: arguments must be process or job IDs", target)
	}
	return pid, nil
}

func init() {
	builtins["cd"] = BuiltinFunc(Cd)
	builtins["exit"] = BuiltinFunc(Exit)
	builtins["jobs"] = BuiltinFunc(Jobs)
	builtins["kill"] = BuiltinFunc(Kill)
}

// Package spawn starts child processes for the shell: it resolves
// redirections into descriptor bindings, finds the program on PATH and
// forks it into its own process group.
package spawn

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"jcsh/internal/ast"
)

// Error is a structured spawn failure.
type Error struct {
	// Op is one of "lookup", "open", "dup" or "exec".
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "lookup" && errors.Is(e.Err, ErrNotFound) {
		return e.Name + ": command not found"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NoTerminal disables the terminal hand-off in Spec.
const NoTerminal = -1

// Spec fully describes a child to start.
type Spec struct {
	// Argv is the argument vector; Argv[0] is the program name.
	Argv []string

	// Dir is the working directory of the child.
	Dir string

	// Env is the child environment as KEY=value pairs.
	Env []string

	// Redirections are applied in order; later ones win per stream.
	Redirections []ast.Redirection

	// Inherited are the descriptors used for streams without a
	// redirection.
	Inherited [3]uintptr

	// Background children read from /dev/null unless stdin is redirected.
	Background bool

	// Terminal is the controlling terminal descriptor to give the child's
	// process group, or NoTerminal.
	Terminal int
}

// Start forks the program described by spec. The child is the leader of a
// new process group, set up before the program image is loaded. It returns
// the child's pid, which is also its process group id.
func Start(spec Spec) (int, error) {
	if len(spec.Argv) == 0 {
		return 0, &Error{Op: "exec", Err: errors.New("empty argument vector")}
	}
	name := spec.Argv[0]

	path, err := LookPath(name, lookupEnv(spec.Env, "PATH"), spec.Dir)
	if err != nil {
		return 0, &Error{Op: "lookup", Name: name, Err: err}
	}

	bindings, err := Resolve(spec.Dir, spec.Redirections)
	if err != nil {
		return 0, err
	}
	// The child holds its own copies once forked.
	defer bindings.Close()

	files := bindings.Files(spec.Inherited)
	if !bindings.Bound(ast.Stdin) && spec.Background {
		devNull, err := os.Open(os.DevNull)
		if err != nil {
			return 0, &Error{Op: "open", Name: os.DevNull, Err: pathCause(err)}
		}
		defer devNull.Close()
		files[0] = devNull.Fd()
	}

	sys := &syscall.SysProcAttr{Setpgid: true}
	if spec.Terminal != NoTerminal && !spec.Background {
		sys.Foreground = true
		sys.Ctty = spec.Terminal
	}

	pid, err := syscall.ForkExec(path, spec.Argv, &syscall.ProcAttr{
		Dir:   spec.Dir,
		Env:   spec.Env,
		Files: files,
		Sys:   sys,
	})
	if err != nil {
		return 0, &Error{Op: "exec", Name: name, Err: err}
	}
	return pid, nil
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	value := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			// Last one wins, as with exec.Cmd.Env.
			value = kv[len(prefix):]
		}
	}
	return value
}

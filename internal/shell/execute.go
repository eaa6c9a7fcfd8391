package shell

import (
	"errors"
	"fmt"
	"io"

	"jcsh/internal/ast"
	"jcsh/internal/proc"
	"jcsh/internal/spawn"
)

var errEmptyCommand = errors.New("empty command")

// Execute runs cmd. Foreground commands are waited for and their exit code
// is returned with ok set and stored in $?. Background commands and
// foreground jobs that stop are moved to the job table and report no code.
func (s *Shell) Execute(cmd ast.Command) (code int, ok bool, err error) {
	if cmd.Name == "" {
		return 0, false, errEmptyCommand
	}
	name := cmd.String()

	if b, isBuiltin := LookupBuiltin(cmd.Name); isBuiltin && !cmd.Background {
		job, err := proc.NewJob(0, name, false, proc.NewInternal(cmd.Name, s.runBuiltin(s, b, cmd)))
		if err != nil {
			return 0, false, err
		}
		return s.waitForeground(job)
	}

	job, err := s.launch(cmd, name)
	if err != nil {
		return 0, false, err
	}

	if !cmd.Background {
		return s.waitForeground(job)
	}

	// Printing is left to the next UpdateJobs so a finished job is
	// announced once, under its table id.
	if err := job.Poll(); err != nil {
		s.Diagnose(err)
	}
	s.AddJob(job)
	return 0, false, nil
}

// launch starts cmd in a new process group. Builtins, which only get here
// in the background, are not forked: they run synchronously in the shell
// process against a detached copy of the shell, so they cannot change its
// state, and become an already finished job. A program that cannot be
// started becomes a finished job with exit code 1.
func (s *Shell) launch(cmd ast.Command, name string) (*proc.Job, error) {
	if b, ok := LookupBuiltin(cmd.Name); ok {
		code := s.runBuiltin(s.detach(), b, cmd)
		return proc.NewJob(0, name, true, proc.NewInternal(cmd.Name, code))
	}

	terminal := spawn.NoTerminal
	if s.terminal != nil {
		terminal = s.terminal.Fd()
	}

	pid, err := spawn.Start(spawn.Spec{
		Argv:         cmd.Argv(),
		Dir:          s.env.Dir(),
		Env:          s.env.Exported(),
		Redirections: cmd.Redirections,
		Inherited:    [3]uintptr{s.stdin.Fd(), s.stdout.Fd(), s.stderr.Fd()},
		Background:   cmd.Background,
		Terminal:     terminal,
	})
	if err != nil {
		s.log.Printf("spawn %q: %v", name, err)
		s.Diagnose(err)
		return proc.NewJob(0, name, cmd.Background, proc.NewInternal(cmd.Name, 1))
	}

	s.log.Printf("started pid %d: %s", pid, name)
	return proc.NewJob(pid, name, cmd.Background, proc.NewExternal(pid, cmd.Name))
}

// waitForeground blocks until job stops or finishes.
func (s *Shell) waitForeground(job *proc.Job) (int, bool, error) {
	err := job.Update(true, nil)
	if s.terminal != nil && job.Pgid > 0 {
		if err := s.terminal.Reclaim(); err != nil {
			s.log.Printf("reclaim terminal: %v", err)
		}
	}
	if err != nil {
		return 0, false, err
	}

	if !job.Status().IsFinished() {
		s.AddJob(job)
		fmt.Fprintln(s.out, job)
		return 0, false, nil
	}

	exit, ok := job.ExitStatus()
	if !ok {
		return 0, false, fmt.Errorf("%s: finished without exit status", job.Name)
	}
	s.log.Printf("%s: %v", job.Name, exit)

	code := exit.ShellCode()
	s.setExitCode(code)
	return code, true, nil
}

// runBuiltin calls b inside target with cmd's redirections applied to the
// builtin's output streams. Failures are printed on the builtin's error
// stream and turned into exit code 1.
func (s *Shell) runBuiltin(target *Shell, b Builtin, cmd ast.Command) int {
	bindings, err := spawn.Resolve(target.env.Dir(), cmd.Redirections)
	if err != nil {
		target.Diagnose(err)
		return 1
	}
	defer bindings.Close()

	std := [3]io.Writer{target.stdin, target.out, target.errOut}
	streams := Streams{
		Out: bindings.Writer(ast.Stdout, std),
		Err: bindings.Writer(ast.Stderr, std),
	}

	code, err := b.Call(target, streams, cmd.Args)
	if err != nil {
		diagnose(streams.Err, &BuiltinError{Name: cmd.Name, Err: err})
		if code == 0 {
			code = 1
		}
	}
	return code
}

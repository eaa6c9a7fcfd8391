// Package proc models processes, jobs and the job table.
package proc

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Process is a runnable unit of execution inside a job. The set of
// implementations is closed: *External and *Internal.
type Process interface {
	// Pid returns the OS process id. It panics for *Internal.
	Pid() int
	Name() string
	// Status returns the cached status of the last wait.
	Status() Status
	// ExitStatus returns the cached outcome of the last wait.
	ExitStatus() (ExitStatus, bool)
	// Wait collects a status change, blocking until one happens if blocking
	// is set. Finished processes are not waited on again.
	Wait(blocking bool) (Status, error)

	process()
}

type wait4Func func(pid int, ws *unix.WaitStatus, options int, ru *unix.Rusage) (int, error)

// External is a spawned OS process.
type External struct {
	pid     int
	name    string
	status  Status
	exit    ExitStatus
	hasExit bool

	wait4 wait4Func
}

// NewExternal wraps a running child process.
func NewExternal(pid int, name string) *External {
	return &External{
		pid:    pid,
		name:   name,
		status: Running,
		wait4:  unix.Wait4,
	}
}

func (p *External) process() {}

func (p *External) Pid() int { return p.pid }

func (p *External) Name() string { return p.name }

func (p *External) Status() Status { return p.status }

func (p *External) ExitStatus() (ExitStatus, bool) { return p.exit, p.hasExit }

func (p *External) Wait(blocking bool) (Status, error) {
	if p.status.IsFinished() {
		return p.status, nil
	}

	options := unix.WUNTRACED
	if !blocking {
		options |= unix.WNOHANG | unix.WCONTINUED
	}

	var ws unix.WaitStatus
	for {
		wpid, err := p.wait4(p.pid, &ws, options, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return p.status, fmt.Errorf("wait %d: %w", p.pid, err)
		}
		if wpid == 0 {
			// WNOHANG and nothing changed.
			return p.status, nil
		}
		break
	}

	p.exit, p.hasExit = FromWaitStatus(ws)
	p.status = StatusOf(p.exit, p.hasExit)
	return p.status, nil
}

// Internal is the already known result of a builtin run in the shell.
type Internal struct {
	name string
	exit ExitStatus
}

// NewInternal records a builtin that finished with code.
func NewInternal(name string, code int) *Internal {
	return &Internal{name: name, exit: Exited(code)}
}

func (p *Internal) process() {}

// Pid panics: builtins have no OS process.
func (p *Internal) Pid() int {
	panic("proc: internal process " + p.name + " has no pid")
}

func (p *Internal) Name() string { return p.name }

func (p *Internal) Status() Status { return Done }

func (p *Internal) ExitStatus() (ExitStatus, bool) { return p.exit, true }

func (p *Internal) Wait(bool) (Status, error) { return Done, nil }

var (
	_ Process = (*External)(nil)
	_ Process = (*Internal)(nil)
)

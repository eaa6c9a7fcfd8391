package proc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Status is the coarse state of a process or job.
type Status int

const (
	Running Status = iota
	Stopped
	Killed
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Killed:
		return "Killed"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsFinished reports whether the state is terminal.
func (s Status) IsFinished() bool {
	return s == Done || s == Killed
}

type exitKind int

const (
	exited exitKind = iota + 1
	signaled
	stopped
)

// ExitStatus is the observed outcome of a wait: an exit code, the signal
// that killed the process, or the signal that stopped it.
type ExitStatus struct {
	kind  exitKind
	value int
}

// Exited returns the status of a process that exited with code.
func Exited(code int) ExitStatus {
	return ExitStatus{kind: exited, value: code}
}

// Signaled returns the status of a process killed by sig.
func Signaled(sig int) ExitStatus {
	return ExitStatus{kind: signaled, value: sig}
}

// StoppedBy returns the status of a process stopped by sig.
func StoppedBy(sig int) ExitStatus {
	return ExitStatus{kind: stopped, value: sig}
}

// FromWaitStatus converts a wait status. It returns false for statuses that
// do not carry an outcome, such as a continued process.
func FromWaitStatus(ws unix.WaitStatus) (ExitStatus, bool) {
	switch {
	case ws.Exited():
		return Exited(ws.ExitStatus()), true
	case ws.Signaled():
		return Signaled(int(ws.Signal())), true
	case ws.Stopped():
		return StoppedBy(int(ws.StopSignal())), true
	default:
		return ExitStatus{}, false
	}
}

// Code returns the exit code of a process that exited normally.
func (e ExitStatus) Code() (int, bool) {
	return e.value, e.kind == exited
}

// Killed returns the signal that terminated the process.
func (e ExitStatus) Killed() (int, bool) {
	return e.value, e.kind == signaled
}

// StoppedSignal returns the signal that stopped the process.
func (e ExitStatus) StoppedSignal() (int, bool) {
	return e.value, e.kind == stopped
}

// ShellCode is the value reported through $?: the exit code, or 128 plus
// the signal number for killed and stopped processes.
func (e ExitStatus) ShellCode() int {
	if e.kind == exited {
		return e.value
	}
	return 128 + e.value
}

func (e ExitStatus) String() string {
	switch e.kind {
	case exited:
		return fmt.Sprintf("exit status %d", e.value)
	case signaled:
		return fmt.Sprintf("killed by %s", unix.SignalName(unix.Signal(e.value)))
	case stopped:
		return fmt.Sprintf("stopped by %s", unix.SignalName(unix.Signal(e.value)))
	default:
		return "no status"
	}
}

// StatusOf derives the coarse status from the latest exit status. ok is
// false when no outcome has been observed yet.
func StatusOf(e ExitStatus, ok bool) Status {
	if !ok {
		return Running
	}
	switch e.kind {
	case stopped:
		return Stopped
	case signaled:
		return Killed
	default:
		return Done
	}
}

package proc

import (
	"errors"
	"fmt"
	"io"
)

// ErrNoProcesses is returned when building a job without processes.
var ErrNoProcesses = errors.New("job has no processes")

// Job is a group of processes launched from one command line.
type Job struct {
	// ID is assigned by the job table; 0 until registered.
	ID         int
	Pgid       int
	Name       string
	Background bool

	lastStatus Status
	processes  []Process
}

// NewJob builds a job in the Running state it is launched in; the first
// Update computes the real aggregate. The first process is the group leader
// whose exit status is reported for the whole job.
func NewJob(pgid int, name string, background bool, processes ...Process) (*Job, error) {
	if len(processes) == 0 {
		return nil, ErrNoProcesses
	}
	j := &Job{
		Pgid:       pgid,
		Name:       name,
		Background: background,
		lastStatus: Running,
		processes:  processes,
	}
	return j, nil
}

// Status returns the aggregate status computed by the last update.
func (j *Job) Status() Status {
	return j.lastStatus
}

// Processes returns the member processes in launch order.
func (j *Job) Processes() []Process {
	return j.processes
}

// ExitStatus returns the leader's outcome.
func (j *Job) ExitStatus() (ExitStatus, bool) {
	return j.processes[0].ExitStatus()
}

// Poll reaps members that already changed state without blocking. The
// aggregate status is left alone so the next Update reports the change.
func (j *Job) Poll() error {
	return j.wait(false)
}

// Update waits on every unfinished member and recomputes the aggregate
// status. When the status changes a display line is written to notify,
// unless the job is in the foreground and just finished.
func (j *Job) Update(blocking bool, notify io.Writer) error {
	err := j.wait(blocking)

	previous := j.lastStatus
	j.lastStatus = aggregate(j.processes)

	if previous != j.lastStatus && notify != nil {
		if j.Background || !j.lastStatus.IsFinished() {
			fmt.Fprintln(notify, j)
		}
	}
	return err
}

func (j *Job) wait(blocking bool) error {
	var errs []error
	for _, p := range j.processes {
		if p.Status().IsFinished() {
			continue
		}
		if _, err := p.Wait(blocking); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// String renders the display line: [id] pgid status name, tab separated.
func (j *Job) String() string {
	return fmt.Sprintf("[%d]\t%d\t%s\t%s", j.ID, j.Pgid, j.lastStatus, j.Name)
}

// aggregate joins member statuses: Running beats Stopped beats Killed beats
// Done.
func aggregate(processes []Process) Status {
	var stopped, killed bool
	for _, p := range processes {
		switch p.Status() {
		case Running:
			return Running
		case Stopped:
			stopped = true
		case Killed:
			killed = true
		}
	}
	switch {
	case stopped:
		return Stopped
	case killed:
		return Killed
	default:
		return Done
	}
}

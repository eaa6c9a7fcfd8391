package proc

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

var (
	// ErrJobNotFound is returned for ids that name an empty slot.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobOutOfRange is returned for ids outside the table.
	ErrJobOutOfRange = errors.New("job index out of bounds")
)

// Table is the registry of background jobs. Ids are 1-based and the lowest
// free slot is reused before the table grows. It is not safe for concurrent
// use; the shell only touches it between commands.
type Table struct {
	slots []*Job
	size  int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add registers job in the lowest free slot and returns its id.
func (t *Table) Add(job *Job) int {
	for i, slot := range t.slots {
		if slot == nil {
			job.ID = i + 1
			t.slots[i] = job
			t.size++
			return job.ID
		}
	}
	t.slots = append(t.slots, job)
	job.ID = len(t.slots)
	t.size++
	return job.ID
}

// Remove clears the slot of id.
func (t *Table) Remove(id int) error {
	if id < 1 || id > len(t.slots) {
		return fmt.Errorf("%w: %d", ErrJobOutOfRange, id)
	}
	if t.slots[id-1] == nil {
		return fmt.Errorf("%w: %%%d", ErrJobNotFound, id)
	}
	t.slots[id-1] = nil
	t.size--
	return nil
}

// Get returns the job registered under id.
func (t *Table) Get(id int) (*Job, error) {
	if id < 1 || id > len(t.slots) || t.slots[id-1] == nil {
		return nil, fmt.Errorf("%w: %%%d", ErrJobNotFound, id)
	}
	return t.slots[id-1], nil
}

// Size returns the number of registered jobs.
func (t *Table) Size() int {
	return t.size
}

// Jobs returns the registered jobs in ascending id order.
func (t *Table) Jobs() []*Job {
	jobs := make([]*Job, 0, t.size)
	for _, j := range t.slots {
		if j != nil {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// Update polls every job without blocking, writing status changes to
// notify, then drops the jobs that finished. Jobs whose processes can no
// longer be waited on are dropped as well.
func (t *Table) Update(notify io.Writer) error {
	var (
		finished []int
		errs     []error
	)
	for _, j := range t.Jobs() {
		if err := j.Update(false, notify); err != nil {
			errs = append(errs, fmt.Errorf("job %d: %w", j.ID, err))
			if errors.Is(err, unix.ECHILD) {
				finished = append(finished, j.ID)
				continue
			}
		}
		if j.Status().IsFinished() {
			finished = append(finished, j.ID)
		}
	}

	for _, id := range finished {
		if err := t.Remove(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Print writes the display line of every job in ascending id order.
func (t *Table) Print(w io.Writer) {
	for _, j := range t.Jobs() {
		fmt.Fprintln(w, j)
	}
}

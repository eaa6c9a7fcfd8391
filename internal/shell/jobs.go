package shell

import (
	"fmt"

	"jcsh/internal/proc"
)

// AddJob registers a job in the background table and returns its id.
func (s *Shell) AddJob(job *proc.Job) int {
	id := s.jobs.Add(job)
	s.log.Printf("job %d added: pgid %d %q", id, job.Pgid, job.Name)
	return id
}

// UpdateJobs polls every background job, printing status changes and
// dropping finished jobs. Errors are reported, never returned.
func (s *Shell) UpdateJobs() {
	if err := s.jobs.Update(s.out); err != nil {
		s.Diagnose(err)
	}
}

// PrintJobs writes the display line of every background job.
func (s *Shell) PrintJobs() {
	s.jobs.Print(s.out)
}

// Jobs returns the background jobs in id order.
func (s *Shell) Jobs() []*proc.Job {
	return s.jobs.Jobs()
}

// JobCount returns the number of background jobs.
func (s *Shell) JobCount() int {
	return s.jobs.Size()
}

// JobPgid returns the process group of job id.
func (s *Shell) JobPgid(id int) (int, error) {
	job, err := s.jobs.Get(id)
	if err != nil {
		return 0, err
	}
	if job.Pgid <= 0 {
		return 0, fmt.Errorf("job %d has no process group", id)
	}
	return job.Pgid, nil
}

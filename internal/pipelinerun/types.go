package pipelinerun

import (
	"fmt"
	"sync"
	"time"

	"github.com/xrel-dev/xrel/internal/artifact"
	"github.com/xrel-dev/xrel/internal/matrix"
)

// JobState represents the current state of a job
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// IsTerminal returns true if the job state is a final state
func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// IsSuccess returns true if the job completed successfully
func (s JobState) IsSuccess() bool {
	return s == JobStateSucceeded
}

// FailureKind records which step of a job failed
type FailureKind string

const (
	FailureNone     FailureKind = ""
	FailureBuild    FailureKind = "build"
	FailureStore    FailureKind = "store"
	FailureTimeout  FailureKind = "timeout"
	FailureCanceled FailureKind = "canceled"
)

// Job is the build of one matrix entry
type Job struct {
	ID           string
	Entry        matrix.Entry
	ArtifactName string
	// BinaryPath is where the toolchain left the built binary
	BinaryPath string

	State     JobState
	Failure   FailureKind
	Err       error
	Commit    string
	Artifact  *artifact.Artifact
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration returns how long the job ran
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.EndedAt.IsZero() {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}

// Outcome is what a Runner reports for a finished job
type Outcome struct {
	Failure    FailureKind
	Err        error
	Commit     string
	BinaryPath string
	Artifact   *artifact.Artifact
}

// JobSet holds the jobs of a run. Jobs are mutated only through its methods,
// which enforce pending → running → {succeeded, failed}.
type JobSet struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

// NewJobSet creates a new empty job set
func NewJobSet() *JobSet {
	return &JobSet{jobs: make(map[string]*Job)}
}

// Add adds a pending job to the set
func (s *JobSet) Add(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.State = JobStatePending
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
}

// Len returns the number of jobs
func (s *JobSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns a copy of a job by ID
func (s *JobSet) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns copies of the jobs in matrix order
func (s *JobSet) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, *s.jobs[id])
	}
	return jobs
}

// Start moves a pending job to running
func (s *JobSet) Start(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	if job.State != JobStatePending {
		return fmt.Errorf("job %s is %s, not pending", id, job.State)
	}
	job.State = JobStateRunning
	job.StartedAt = time.Now()
	return nil
}

// Finish records the outcome of a running job
func (s *JobSet) Finish(id string, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	if job.State != JobStateRunning {
		return fmt.Errorf("job %s is %s, not running", id, job.State)
	}

	job.Commit = out.Commit
	job.BinaryPath = out.BinaryPath
	job.EndedAt = time.Now()
	if out.Err != nil || out.Failure != FailureNone {
		job.State = JobStateFailed
		job.Failure = out.Failure
		if job.Failure == FailureNone {
			job.Failure = FailureBuild
		}
		job.Err = out.Err
		return nil
	}
	job.State = JobStateSucceeded
	job.Artifact = out.Artifact
	return nil
}

// AllTerminal returns true if all jobs have reached a terminal state
func (s *JobSet) AllTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if !job.State.IsTerminal() {
			return false
		}
	}
	return true
}

// HasFailed returns true if any job has failed
func (s *JobSet) HasFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if job.State == JobStateFailed {
			return true
		}
	}
	return false
}

// Artifacts returns the artifacts of succeeded jobs in matrix order
func (s *JobSet) Artifacts() []artifact.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []artifact.Artifact
	for _, id := range s.order {
		job := s.jobs[id]
		if job.State == JobStateSucceeded && job.Artifact != nil {
			out = append(out, *job.Artifact)
		}
	}
	return out
}

// Stats counts jobs by state
type Stats struct {
	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Pending   int `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// Stats returns current job statistics
func (s *JobSet) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.jobs)}
	for _, job := range s.jobs {
		switch job.State {
		case JobStateSucceeded:
			stats.Succeeded++
		case JobStateFailed:
			stats.Failed++
		default:
			stats.Pending++
		}
	}
	return stats
}

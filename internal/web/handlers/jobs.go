package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/training"
)

// errJobRunning is returned when a training job is started while another one is active.
var errJobRunning = errors.New("a training job is already running")

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// TrainingJobOptions represents training job options.
type TrainingJobOptions struct {
	Quota    int   `json:"quota"`
	Seed     int64 `json:"seed"`
	SkipTest bool  `json:"skip_test"`
}

// TrainingJobResult represents the result of a training job.
type TrainingJobResult struct {
	RunID      string                    `json:"run_id"`
	Trained    int                       `json:"trained"`
	Samples    int                       `json:"samples"`
	Identities []training.IdentityReport `json:"identities"`
	SelfTest   training.InSampleReport   `json:"self_test"`
	HeldOut    *training.HeldOutReport   `json:"held_out,omitempty"`
	DurationMs int64                     `json:"duration_ms"`
}

// TrainingJob represents an async training run.
type TrainingJob struct {
	EventBroadcaster

	ID          string
	Status      JobStatus
	Cancelling  bool
	Phase       string
	Progress    int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Options     TrainingJobOptions
	Result      *TrainingJobResult

	done chan struct{}
}

// MarshalJSON encodes a consistent snapshot of the job.
func (j *TrainingJob) MarshalJSON() ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return json.Marshal(struct {
		ID          string             `json:"id"`
		Status      JobStatus          `json:"status"`
		Cancelling  bool               `json:"cancelling,omitempty"`
		Phase       string             `json:"phase,omitempty"`
		Progress    int                `json:"progress"`
		Error       string             `json:"error,omitempty"`
		StartedAt   time.Time          `json:"started_at"`
		CompletedAt *time.Time         `json:"completed_at,omitempty"`
		Options     TrainingJobOptions `json:"options"`
		Result      *TrainingJobResult `json:"result,omitempty"`
	}{j.ID, j.Status, j.Cancelling, j.Phase, j.Progress, j.Error, j.StartedAt, j.CompletedAt, j.Options, j.Result})
}

// GetStatus returns the current job status (implements SSEJob).
func (j *TrainingJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel asks the running job to stop. The job stays active until its
// goroutine notices and moves it to a terminal state; Done reports that.
func (j *TrainingJob) Cancel() {
	j.mu.Lock()
	if isJobTerminal(j.Status) || j.Cancelling {
		j.mu.Unlock()
		return
	}
	j.Cancelling = true
	j.mu.Unlock()

	if j.cancel != nil {
		j.cancel()
	}
	j.SendEvent(JobEvent{Type: "cancelling", Message: "Cancellation requested"})
}

// Done is closed once the job reached a terminal state.
func (j *TrainingJob) Done() <-chan struct{} {
	return j.done
}

func (j *TrainingJob) setRunning() {
	j.mu.Lock()
	if j.Status == JobStatusPending {
		j.Status = JobStatusRunning
	}
	j.mu.Unlock()
}

func (j *TrainingJob) setProgress(phase string, progress int) {
	j.mu.Lock()
	j.Phase = phase
	if progress > j.Progress {
		j.Progress = progress
	}
	j.mu.Unlock()
}

func (j *TrainingJob) complete(result *TrainingJobResult) {
	j.mu.Lock()
	j.Result = result
	j.Progress = 100
	j.mu.Unlock()
	j.finish(JobStatusCompleted, "")
}

// finish moves the job into a terminal state once; later calls are ignored.
func (j *TrainingJob) finish(status JobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if isJobTerminal(j.Status) {
		return
	}
	now := time.Now()
	j.Status = status
	j.Error = message
	j.CompletedAt = &now
	close(j.done)
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager keeps training jobs and allows one active job at a time.
type JobManager struct {
	jobs  map[string]*TrainingJob
	order []string
	mu    sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainingJob),
	}
}

// CreateJob registers a pending job, or returns errJobRunning when another
// job has not finished yet, including one that is still being cancelled.
// Old finished jobs are dropped.
func (m *JobManager) CreateJob(id string, options TrainingJobOptions, cancel context.CancelFunc) (*TrainingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if !isJobTerminal(job.GetStatus()) {
			return nil, errJobRunning
		}
	}

	job := &TrainingJob{
		EventBroadcaster: EventBroadcaster{cancel: cancel},
		ID:               id,
		Status:           JobStatusPending,
		StartedAt:        time.Now(),
		Options:          options,
		done:             make(chan struct{}),
	}
	m.jobs[id] = job
	m.order = append(m.order, id)

	for len(m.order) > constants.FinishedJobsKept {
		delete(m.jobs, m.order[0])
		m.order = m.order[1:]
	}
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TrainingJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all kept jobs, oldest first.
func (m *JobManager) ListJobs() []*TrainingJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*TrainingJob, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.jobs[id])
	}
	return jobs
}

// CancelActive asks every unfinished job to stop and waits until they
// finished or ctx ends.
func (m *JobManager) CancelActive(ctx context.Context) error {
	var active []*TrainingJob
	for _, job := range m.ListJobs() {
		if !isJobTerminal(job.GetStatus()) {
			job.Cancel()
			active = append(active, job)
		}
	}
	for _, job := range active {
		select {
		case <-job.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

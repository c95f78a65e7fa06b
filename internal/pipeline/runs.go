package pipeline

import (
	"sync"
	"time"
)

// RunStatus represents the state of a run.
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusFetching   RunStatus = "fetching"
	StatusExtracting RunStatus = "extracting"
	StatusGenerating RunStatus = "generating"
	StatusExporting  RunStatus = "exporting"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
	StatusSkipped    RunStatus = "skipped"
)

// Run tracks one execution of the pipeline.
type Run struct {
	mu sync.Mutex

	ID     string
	Date   string
	DryRun bool

	status    RunStatus
	errMsg    string
	report    *Report
	createdAt time.Time
	updatedAt time.Time
}

func newRun(id, date string, dryRun bool) *Run {
	now := time.Now()
	return &Run{
		ID:        id,
		Date:      date,
		DryRun:    dryRun,
		status:    StatusQueued,
		createdAt: now,
		updatedAt: now,
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.updatedAt = time.Now()
}

// Finish records the final status along with the report and error, if any.
func (r *Run) Finish(status RunStatus, report *Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.report = report
	if err != nil {
		r.errMsg = err.Error()
	}
	r.updatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	Date      string    `json:"date"`
	DryRun    bool      `json:"dry_run"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Report    *Report   `json:"report,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSnapshot{
		ID:        r.ID,
		Date:      r.Date,
		DryRun:    r.DryRun,
		Status:    r.status,
		Error:     r.errMsg,
		Report:    r.report,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

// Get returns the run with id, or nil.
func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes runs not updated within the TTL.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		expired := now.Sub(run.updatedAt) > s.ttl
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}

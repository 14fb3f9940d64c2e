package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no run matches the lookup.
	ErrNotFound = errors.New("flow run not found")
)

// Status is the lifecycle state of a flow run or step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepRecord is the outcome of one step within a run.
type StepRecord struct {
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Run is the record of one flow execution.
type Run struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Flow       string       `json:"flow"`
	Status     Status       `json:"status"`
	Steps      []StepRecord `json:"steps"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"startedAt"` // always UTC
	FinishedAt time.Time    `json:"finishedAt,omitempty"`
}

// RunStore is the contract the run history (in-memory or persistent) must satisfy.
type RunStore interface {
	SaveRun(run Run)
	GetRun(id string) (Run, error)
	ListRuns(flow string) ([]Run, error)
}

// RunHistory holds a start-ordered list of runs for one flow.
type RunHistory struct {
	Runs []Run
}

// MemoryStore is a concurrency-safe in-memory run history.
type MemoryStore struct {
	mu sync.RWMutex

	// key: flow name, value: history
	data map[string]*RunHistory

	// retention configuration
	maxHistory int           // max number of runs per flow
	maxAge     time.Duration // optional max age for runs
}

// Ensure MemoryStore implements RunStore.
var _ RunStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*RunHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveRun inserts a run, or replaces the stored copy with the same ID, and
// enforces retention.
func (s *MemoryStore) SaveRun(run Run) {
	run.Steps = append([]StepRecord(nil), run.Steps...)

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[run.Flow]
	if !ok {
		history = &RunHistory{}
		s.data[run.Flow] = history
	}

	for i := range history.Runs {
		if history.Runs[i].ID == run.ID {
			history.Runs[i] = run
			return
		}
	}
	history.Runs = append(history.Runs, run)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Runs) > s.maxHistory {
		over := len(history.Runs) - s.maxHistory
		history.Runs = history.Runs[over:]
	}

	// Enforce retention by age. The run just saved is always kept.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Runs)-1; i++ {
			if !history.Runs[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Runs = history.Runs[i:]
		}
	}
}

// GetRun returns the run with the given ID.
func (s *MemoryStore) GetRun(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, history := range s.data {
		for _, run := range history.Runs {
			if run.ID == id {
				return copyRun(run), nil
			}
		}
	}
	return Run{}, ErrNotFound
}

// ListRuns returns the runs of flow, newest first.
func (s *MemoryStore) ListRuns(flow string) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[flow]
	if !ok || len(history.Runs) == 0 {
		return nil, ErrNotFound
	}

	result := make([]Run, 0, len(history.Runs))
	for i := len(history.Runs) - 1; i >= 0; i-- {
		result = append(result, copyRun(history.Runs[i]))
	}
	return result, nil
}

func copyRun(run Run) Run {
	run.Steps = append([]StepRecord(nil), run.Steps...)
	return run
}

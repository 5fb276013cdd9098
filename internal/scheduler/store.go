package scheduler

import (
	"maps"
	"sync"
	"time"

	"github.com/harunnryd/sift/internal/store"

	"github.com/oklog/ulid/v2"
)

type RunStatus string

const (
	StatusIdle    RunStatus = "IDLE"
	StatusRunning RunStatus = "RUNNING"
	StatusDone    RunStatus = "DONE"
	StatusFailed  RunStatus = "FAILED"
	StatusSkipped RunStatus = "SKIPPED"
)

// JobStatus is the persisted record of a job's most recent run.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Status    RunStatus `json:"status"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	Skipped   int       `json:"skipped"`
}

type JobList struct {
	Jobs map[string]JobStatus `json:"jobs"`
}

// Store keeps job run history. An empty path keeps it in memory only.
type Store struct {
	path string
	data JobList
	mu   sync.RWMutex
}

func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: JobList{Jobs: make(map[string]JobStatus)},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := store.ReadJSON(s.path, &s.data); err != nil {
		return err
	}
	if s.data.Jobs == nil {
		s.data.Jobs = make(map[string]JobStatus)
	}
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	return store.WriteJSON(s.path, s.data)
}

func (s *Store) Get(name string) (JobStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.Jobs[name]
	return st, ok
}

func (s *Store) GetAll() map[string]JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data.Jobs)
}

// Update applies fn to the named record and persists the result.
func (s *Store) Update(name string, fn func(*JobStatus)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.Jobs[name]
	if !ok {
		st = JobStatus{Name: name, Status: StatusIdle}
	}
	fn(&st)
	s.data.Jobs[name] = st
	return s.save()
}

func generateRunID() string {
	return ulid.Make().String()
}

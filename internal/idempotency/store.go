// Package idempotency remembers which mail messages were already handled so
// a re-run of the poller never classifies or moves a message twice.
package idempotency

import (
	"slices"
	"sync"

	"github.com/harunnryd/sift/internal/store"
)

// DefaultLimit bounds how many ids are remembered.
const DefaultLimit = 1000

type ProcessedKeys struct {
	// Processed is ordered oldest first.
	Processed []string `json:"processed"`
}

type Store struct {
	path  string
	limit int
	order []string
	seen  map[string]struct{}
	mu    sync.RWMutex
}

func NewStore(path string, limit int) (*Store, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Store{
		path:  path,
		limit: limit,
		seen:  make(map[string]struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state ProcessedKeys
	found, err := store.ReadJSON(s.path, &state)
	if err != nil {
		return err
	}
	if !found {
		return s.save()
	}

	for _, key := range state.Processed {
		s.markLocked(key)
	}
	s.trimLocked()
	return nil
}

func (s *Store) save() error {
	return store.WriteJSON(s.path, ProcessedKeys{Processed: slices.Clone(s.order)})
}

// Save trims the set to the limit, keeping the most recent ids, and persists it.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimLocked()
	return s.save()
}

func (s *Store) Seen(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[key]
	return ok
}

// CheckAndMark reports whether key was already processed and marks it if not.
func (s *Store) CheckAndMark(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return true
	}
	s.markLocked(key)
	return false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) markLocked(key string) {
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, key)
}

func (s *Store) trimLocked() {
	excess := len(s.order) - s.limit
	if excess <= 0 {
		return
	}
	for _, key := range s.order[:excess] {
		delete(s.seen, key)
	}
	s.order = slices.Clone(s.order[excess:])
}

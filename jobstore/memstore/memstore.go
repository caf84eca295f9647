// Package memstore is an in-memory jobstore.Store: a map guarded by a
// mutex, storing a defensive copy on every write and handing back a
// defensive copy on every read so a caller can never mutate state out
// from under the store. It is the backend Resolve falls back to when no
// environment variable names a real one — jobs survive for the life of
// the process but not across a restart.
package memstore

import (
	"context"
	"sync"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

// Store holds job records for the lifetime of the process only.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobmodel.PersistedJob
}

// New logs the same degraded-mode warning the original null/default
// store gives, since memstore never survives a restart either.
func New() *Store {
	logger.Warn("no persistence backend configured; jobs will not be saved across restarts")
	return &Store{jobs: make(map[string]*jobmodel.PersistedJob)}
}

func (s *Store) LoadAll(_ context.Context) ([]*jobmodel.PersistedJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*jobmodel.PersistedJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, id string, data *jobmodel.PersistedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[id] = data.Clone()
	return nil
}

func (s *Store) Update(_ context.Context, id string, data *jobmodel.PersistedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[id] = data.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is the fallback used when Redis is not reachable, and the
// store of choice in tests. Records are copied through JSON on the way in
// and out so callers never share memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs[job.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*Job, error) {
	s.mu.RLock()
	data, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

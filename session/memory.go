package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	sessions map[string]*Snapshot
	mu       sync.RWMutex
}

// NewMemoryStore creates a Store backed by in-process maps. State is lost
// when the process exits.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]*Snapshot),
	}
}

func (s *memoryStore) Load(_ context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.sessions[id]
	if !exists {
		return &Snapshot{ID: id}, nil
	}

	return &Snapshot{
		ID:         snap.ID,
		Messages:   cloneMessages(snap.Messages),
		Suspension: snap.Suspension.Clone(),
		UpdatedAt:  snap.UpdatedAt,
	}, nil
}

func (s *memoryStore) Commit(_ context.Context, id string, c Commit) error {
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[id]
	if !exists {
		current = &Snapshot{ID: id}
	}

	next, err := apply(current, c, time.Now())
	if err != nil {
		return err
	}

	s.sessions[id] = next
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

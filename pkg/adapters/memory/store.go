package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sonicwave/pulse/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.UiState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.UiState),
	}
}

// Save persists the snapshot in memory. UiState is a value type, so the
// stored copy is isolated from the caller.
func (s *Store) Save(ctx context.Context, deviceID string, state domain.UiState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[deviceID] = state
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, deviceID string) (domain.UiState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[deviceID]
	if !ok {
		return domain.UiState{}, domain.ErrSnapshotNotFound
	}
	return state, nil
}

// Delete removes the snapshot from memory.
func (s *Store) Delete(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, deviceID)
	return nil
}

// List returns all stored device IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
)

// MockStore is a minimal SnapshotStore used to check the contract suite itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]domain.UiState
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]domain.UiState)}
}

func (m *MockStore) Save(ctx context.Context, deviceID string, state domain.UiState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[deviceID] = state
	return nil
}

func (m *MockStore) Load(ctx context.Context, deviceID string) (domain.UiState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[deviceID]
	if !ok {
		return domain.UiState{}, domain.ErrSnapshotNotFound
	}
	return state, nil
}

func (m *MockStore) Delete(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, deviceID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, NewMockStore())
}

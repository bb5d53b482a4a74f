package ports

import (
	"context"

	"github.com/sonicwave/pulse/pkg/domain"
)

// SnapshotStore persists the latest snapshot of each device so a host can
// show the last known state after a restart.
type SnapshotStore interface {
	// Save persists the snapshot for a given device ID.
	Save(ctx context.Context, deviceID string, state domain.UiState) error

	// Load retrieves the snapshot for a given device ID.
	// Returns domain.ErrSnapshotNotFound if the device has none.
	Load(ctx context.Context, deviceID string) (domain.UiState, error)

	// Delete removes the snapshot for a given device ID.
	Delete(ctx context.Context, deviceID string) error

	// List returns the IDs of every device with a stored snapshot.
	List(ctx context.Context) ([]string, error)
}

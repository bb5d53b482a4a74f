package ports

import (
	"context"
	"testing"
	"time"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a
// SnapshotStore implementation adheres to the interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	deviceID := "contract-device-" + time.Now().Format("20060102150405")

	sample := domain.UiState{
		ActiveField:      domain.FieldIntensity,
		Frequency:        domain.FieldView{Display: "40", Committed: 40},
		Intensity:        domain.FieldView{Raw: "1", Display: "1", Committed: 30},
		Duration:         domain.FieldView{Display: "09:59", Committed: 10},
		CountdownSeconds: 599,
		RunState:         domain.RunRunning,
		OperationID:      7,
		IsRunning:        true,
		IsHardwareReady:  true,
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, deviceID, sample), "Save should not return error")

		loaded, err := store.Load(ctx, deviceID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sample, loaded)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		next := sample
		next.RunState = domain.RunPaused
		next.IsPaused = true
		require.NoError(t, store.Save(ctx, deviceID, next))

		loaded, err := store.Load(ctx, deviceID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunPaused, loaded.RunState)
		assert.True(t, loaded.IsPaused)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+deviceID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, deviceID, sample))
		require.NoError(t, store.Delete(ctx, deviceID), "Delete should not return error")

		_, err := store.Load(ctx, deviceID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := deviceID + "-1"
		id2 := deviceID + "-2"
		_ = store.Save(ctx, id1, sample)
		_ = store.Save(ctx, id2, sample)
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// InspectableLedger is a ledger that also exposes its records.
type InspectableLedger interface {
	SessionLedger
	LedgerReader
}

// RunLedgerContract runs a suite of tests to verify that a ledger
// implementation records operations as the orchestrator expects.
func RunLedgerContract(t *testing.T, ledger InspectableLedger) {
	ctx := context.Background()
	customer := &domain.Customer{ID: 12, Name: "Ana"}

	t.Run("Start assigns distinct IDs", func(t *testing.T) {
		id1, err := ledger.StartOperation(ctx, customer, 40, 30, 10)
		require.NoError(t, err)
		id2, err := ledger.StartOperation(ctx, nil, 5, 2, 1)
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)

		op, err := ledger.Operation(ctx, id1)
		require.NoError(t, err)
		assert.Equal(t, 40, op.Frequency)
		assert.Equal(t, 30, op.Intensity)
		assert.Equal(t, 10, op.Minutes)
		require.NotNil(t, op.Customer)
		assert.Equal(t, int64(12), op.Customer.ID)
		assert.Nil(t, op.StoppedAt)

		anon, err := ledger.Operation(ctx, id2)
		require.NoError(t, err)
		assert.Nil(t, anon.Customer)
	})

	t.Run("Events and Stop", func(t *testing.T) {
		id, err := ledger.StartOperation(ctx, nil, 60, 20, 5)
		require.NoError(t, err)

		detail := "from keypad"
		require.NoError(t, ledger.LogOperationEvent(ctx, id, domain.OperationEvent{
			Type: domain.OpAdjustIntensity, Frequency: 60, Intensity: 25, TimeRemaining: 280, Detail: &detail,
		}))
		require.NoError(t, ledger.LogOperationEvent(ctx, id, domain.OperationEvent{
			Type: domain.OpPause, Frequency: 60, Intensity: 25, TimeRemaining: 270,
		}))
		require.NoError(t, ledger.StopOperation(ctx, id, domain.StopManual, nil))

		op, err := ledger.Operation(ctx, id)
		require.NoError(t, err)
		require.Len(t, op.Events, 2)
		assert.Equal(t, domain.OpAdjustIntensity, op.Events[0].Type)
		require.NotNil(t, op.Events[0].Detail)
		assert.Equal(t, detail, *op.Events[0].Detail)
		assert.Equal(t, domain.OpPause, op.Events[1].Type)
		assert.NotNil(t, op.StoppedAt)
		assert.Equal(t, domain.StopManual, op.StopReason)
		assert.Nil(t, op.StopDetail)
	})

	t.Run("Unknown operation", func(t *testing.T) {
		_, err := ledger.Operation(ctx, 987654321)
		assert.ErrorIs(t, err, domain.ErrOperationNotFound)
		assert.ErrorIs(t, ledger.StopOperation(ctx, 987654321, domain.StopManual, nil), domain.ErrOperationNotFound)
		assert.ErrorIs(t, ledger.LogOperationEvent(ctx, 987654321, domain.OperationEvent{Type: domain.OpPause}), domain.ErrOperationNotFound)
	})

	t.Run("Operations newest first", func(t *testing.T) {
		id, err := ledger.StartOperation(ctx, nil, 100, 50, 3)
		require.NoError(t, err)

		ops, err := ledger.Operations(ctx, 1)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, id, ops[0].ID)

		all, err := ledger.Operations(ctx, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 4)
	})
}

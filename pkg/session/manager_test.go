package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(ctx, key, ttl)
	if fn := args.Get(0); fn != nil {
		return fn.(ports.UnlockFunc), args.Error(1)
	}
	return nil, args.Error(1)
}

type hardwareSet struct {
	mu      sync.Mutex
	created map[string]*memory.Hardware
	calls   atomic.Int32
}

func (h *hardwareSet) factory(ctx context.Context, id string) (ports.HardwareGateway, error) {
	h.calls.Add(1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.created == nil {
		h.created = make(map[string]*memory.Hardware)
	}
	hw := memory.NewHardware()
	h.created[id] = hw
	return hw, nil
}

func TestManager_OpenGetList(t *testing.T) {
	hws := &hardwareSet{}
	mgr := session.NewManager(memory.NewLedger(), hws.factory)
	ctx := context.Background()
	t.Cleanup(func() { _ = mgr.CloseAll(ctx) })

	a, err := mgr.Open(ctx, "b-device")
	require.NoError(t, err)
	assert.Equal(t, "b-device", a.DeviceID())

	again, err := mgr.Open(ctx, "b-device")
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, int32(1), hws.calls.Load())

	generated, err := mgr.Open(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.DeviceID())

	got, err := mgr.Get("b-device")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = mgr.Get("missing")
	require.ErrorIs(t, err, domain.ErrDeviceNotFound)

	ids := mgr.List()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "b-device")
	assert.Contains(t, ids, generated.DeviceID())
}

func TestManager_ConcurrentOpenCreatesOnce(t *testing.T) {
	hws := &hardwareSet{}
	mgr := session.NewManager(memory.NewLedger(), hws.factory)
	ctx := context.Background()
	t.Cleanup(func() { _ = mgr.CloseAll(ctx) })

	var wg sync.WaitGroup
	results := make([]*session.Orchestrator, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := mgr.Open(ctx, "shared")
			assert.NoError(t, err)
			results[i] = o
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), hws.calls.Load())
	for _, o := range results {
		assert.Same(t, results[0], o)
	}
}

func TestManager_CloseStopsActiveSession(t *testing.T) {
	hws := &hardwareSet{}
	ledger := memory.NewLedger()
	mgr := session.NewManager(ledger, hws.factory)
	ctx := context.Background()

	o, err := mgr.Open(ctx, "dev-1")
	require.NoError(t, err)

	for _, in := range typeValues("100", "40", "5") {
		_, _, err := o.Handle(ctx, in)
		require.NoError(t, err)
	}
	st, _, err := o.Handle(ctx, domain.ToggleStartStop{})
	require.NoError(t, err)
	require.True(t, st.IsRunning)

	require.NoError(t, mgr.Close(ctx, "dev-1"))

	op, err := ledger.Operation(ctx, st.OperationID)
	require.NoError(t, err)
	assert.Equal(t, domain.StopShutdown, op.StopReason)
	assert.Empty(t, mgr.List())

	err = mgr.Close(ctx, "dev-1")
	require.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestManager_FactoryError(t *testing.T) {
	boom := errors.New("no such port")
	mgr := session.NewManager(memory.NewLedger(), func(context.Context, string) (ports.HardwareGateway, error) {
		return nil, boom
	})

	_, err := mgr.Open(context.Background(), "dev-1")
	require.ErrorIs(t, err, boom)
	assert.Empty(t, mgr.List())
}

func TestManager_DistributedLock(t *testing.T) {
	hws := &hardwareSet{}
	locker := new(MockLocker)
	var released atomic.Int32
	unlock := ports.UnlockFunc(func(context.Context) error {
		released.Add(1)
		return nil
	})
	locker.On("Lock", mock.Anything, "dev-1", 5*time.Second).Return(unlock, nil)

	mgr := session.NewManager(memory.NewLedger(), hws.factory,
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	_, err := mgr.Open(ctx, "dev-1")
	require.NoError(t, err)
	require.NoError(t, mgr.Close(ctx, "dev-1"))

	locker.AssertNumberOfCalls(t, "Lock", 2)
	assert.Equal(t, int32(2), released.Load())
}

func TestManager_DistributedLockFailure(t *testing.T) {
	hws := &hardwareSet{}
	locker := new(MockLocker)
	locker.On("Lock", mock.Anything, "dev-1", session.DefaultLockTTL).
		Return(nil, context.DeadlineExceeded)

	mgr := session.NewManager(memory.NewLedger(), hws.factory, session.WithLocker(locker))

	_, err := mgr.Open(context.Background(), "dev-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, hws.calls.Load())
}

func TestManager_OrchestratorOptions(t *testing.T) {
	hws := &hardwareSet{}
	mgr := session.NewManager(memory.NewLedger(), hws.factory,
		session.WithOrchestratorOptions(session.WithToggleMode(domain.TogglePauseResume)),
	)
	ctx := context.Background()
	t.Cleanup(func() { _ = mgr.CloseAll(ctx) })

	o, err := mgr.Open(ctx, "dev-1")
	require.NoError(t, err)
	for _, in := range typeValues("100", "40", "5") {
		_, _, err := o.Handle(ctx, in)
		require.NoError(t, err)
	}
	_, _, err = o.Handle(ctx, domain.ToggleStartStop{})
	require.NoError(t, err)

	st, _, err := o.Handle(ctx, domain.ToggleStartStop{})
	require.NoError(t, err)
	assert.True(t, st.IsPaused)
}

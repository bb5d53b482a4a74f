package testutils

import (
	"context"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/stretchr/testify/mock"
)

// MockGateway implements ports.HardwareGateway with testify expectations.
// Readiness is a plain field rather than an expectation.
type MockGateway struct {
	mock.Mock
	IsReady bool
	Changes chan bool
}

func (m *MockGateway) StartOutput(ctx context.Context, frequency, intensity int, playTone bool) (bool, error) {
	args := m.Called(ctx, frequency, intensity, playTone)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) StopOutput(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockGateway) ApplyFrequency(ctx context.Context, frequency int) error {
	return m.Called(ctx, frequency).Error(0)
}

func (m *MockGateway) ApplyIntensity(ctx context.Context, intensity int) error {
	return m.Called(ctx, intensity).Error(0)
}

func (m *MockGateway) PlayStandaloneTone(ctx context.Context, frequency, intensity int) (bool, error) {
	args := m.Called(ctx, frequency, intensity)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) StopStandaloneTone(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockGateway) Ready() bool { return m.IsReady }

func (m *MockGateway) ReadyChanges() <-chan bool { return m.Changes }

// MockLedger implements ports.SessionLedger with testify expectations.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) StartOperation(ctx context.Context, customer *domain.Customer, frequency, intensity, minutes int) (int64, error) {
	args := m.Called(ctx, customer, frequency, intensity, minutes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) StopOperation(ctx context.Context, id int64, reason domain.StopReason, detail *string) error {
	return m.Called(ctx, id, reason, detail).Error(0)
}

func (m *MockLedger) LogOperationEvent(ctx context.Context, id int64, event domain.OperationEvent) error {
	return m.Called(ctx, id, event).Error(0)
}

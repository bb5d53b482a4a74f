package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed device lock survives a
// crashed holder.
const DefaultLockTTL = 30 * time.Second

// HardwareFactory connects the hardware gateway of a device.
type HardwareFactory func(ctx context.Context, deviceID string) (ports.HardwareGateway, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps one Orchestrator per device and serializes opening and
// closing them. It uses reference counting to garbage collect unused locks.
type Manager struct {
	ledger  ports.SessionLedger
	factory HardwareFactory

	mu    sync.Mutex            // Global lock for the maps
	locks map[string]*lockEntry // Map of active locks

	devMu   sync.RWMutex
	devices map[string]*Orchestrator

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	orchOps []Option
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker enables distributed locking, so replicas sharing a Redis
// instance never open or close the same device at the same time.
func WithLocker(locker ports.DistributedLocker) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithManagerLogger configures a logger for the Manager and the
// orchestrators it creates.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithOrchestratorOptions applies opts to every orchestrator the manager opens.
func WithOrchestratorOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.orchOps = append(m.orchOps, opts...)
	}
}

// NewManager creates a device manager. Every device shares ledger; factory
// provides the hardware gateway of each one.
func NewManager(ledger ports.SessionLedger, factory HardwareFactory, opts ...ManagerOption) *Manager {
	m := &Manager{
		ledger:  ledger,
		factory: factory,
		locks:   make(map[string]*lockEntry),
		devices: make(map[string]*Orchestrator),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(deviceID) after unlocking.
func (m *Manager) acquire(deviceID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[deviceID]
	if !exists {
		entry = &lockEntry{}
		m.locks[deviceID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[deviceID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, deviceID)
	}
}

// Open returns the orchestrator of deviceID, creating it when needed.
// An empty deviceID allocates a new random one.
func (m *Manager) Open(ctx context.Context, deviceID string) (*Orchestrator, error) {
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	var orch *Orchestrator
	err := m.WithLock(ctx, deviceID, func(ctx context.Context) error {
		if existing, ok := m.lookup(deviceID); ok {
			orch = existing
			return nil
		}

		hw, err := m.factory(ctx, deviceID)
		if err != nil {
			return fmt.Errorf("failed to connect hardware for %s: %w", deviceID, err)
		}

		opts := append([]Option{WithLogger(m.logger)}, m.orchOps...)
		opts = append(opts, WithDeviceID(deviceID))
		created, err := NewOrchestrator(hw, m.ledger, opts...)
		if err != nil {
			closeHardware(hw, m.logger)
			return fmt.Errorf("failed to create session for %s: %w", deviceID, err)
		}

		m.devMu.Lock()
		m.devices[deviceID] = created
		m.devMu.Unlock()

		m.logger.Info("device opened", "device_id", deviceID)
		orch = created
		return nil
	})
	return orch, err
}

func (m *Manager) lookup(deviceID string) (*Orchestrator, bool) {
	m.devMu.RLock()
	defer m.devMu.RUnlock()
	o, ok := m.devices[deviceID]
	return o, ok
}

// Get returns the orchestrator of an open device.
func (m *Manager) Get(deviceID string) (*Orchestrator, error) {
	if o, ok := m.lookup(deviceID); ok {
		return o, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrDeviceNotFound, deviceID)
}

// Close shuts a device down. Any active session ends with reason shutdown.
func (m *Manager) Close(ctx context.Context, deviceID string) error {
	return m.WithLock(ctx, deviceID, func(ctx context.Context) error {
		o, ok := m.lookup(deviceID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrDeviceNotFound, deviceID)
		}
		if err := o.Close(ctx); err != nil {
			return fmt.Errorf("failed to close %s: %w", deviceID, err)
		}
		closeHardware(o.hw, m.logger)

		m.devMu.Lock()
		delete(m.devices, deviceID)
		m.devMu.Unlock()

		m.logger.Info("device closed", "device_id", deviceID)
		return nil
	})
}

// List returns the IDs of open devices in lexical order.
func (m *Manager) List() []string {
	m.devMu.RLock()
	defer m.devMu.RUnlock()

	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll shuts every open device down and joins their errors.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, domain.ErrDeviceNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithLock executes a function while holding the lock for the device.
func (m *Manager) WithLock(ctx context.Context, deviceID string, fn func(context.Context) error) error {
	entry := m.acquire(deviceID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(deviceID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, deviceID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"device_id", deviceID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// closeHardware releases gateways that hold resources.
func closeHardware(hw ports.HardwareGateway, logger *slog.Logger) {
	c, ok := hw.(interface{ Close() error })
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close hardware", "err", err)
	}
}

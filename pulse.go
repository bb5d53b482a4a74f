package pulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/sonicwave/pulse/internal/config"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/adapters/file"
	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/adapters/process"
	pulseredis "github.com/sonicwave/pulse/pkg/adapters/redis"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/observability"
	"github.com/sonicwave/pulse/pkg/persistence/middleware"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/session"
)

// Stack is a device manager together with the backends it was built on.
type Stack struct {
	Manager *session.Manager
	Ledger  ports.InspectableLedger
	Store   ports.SnapshotStore
	Metrics *observability.Metrics

	logger *slog.Logger
	client *backend.Client
}

// StackOption configures Build.
type StackOption func(*stackOptions)

type stackOptions struct {
	logger   *slog.Logger
	factory  session.HardwareFactory
	client   *backend.Client
	registry *prometheus.Registry
	hooks    []domain.LifecycleHooks
	orchOps  []session.Option
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) StackOption {
	return func(o *stackOptions) {
		o.logger = logger
	}
}

// WithHardwareFactory replaces the simulated hardware.
func WithHardwareFactory(f session.HardwareFactory) StackOption {
	return func(o *stackOptions) {
		o.factory = f
	}
}

// WithRedisClient uses client instead of dialing the configured address.
func WithRedisClient(client *backend.Client) StackOption {
	return func(o *stackOptions) {
		o.client = client
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) StackOption {
	return func(o *stackOptions) {
		o.registry = reg
	}
}

// WithLifecycleHooks adds hooks next to the metrics and log hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) StackOption {
	return func(o *stackOptions) {
		o.hooks = append(o.hooks, hooks)
	}
}

// WithSessionOptions appends orchestrator options after the configured ones.
func WithSessionOptions(opts ...session.Option) StackOption {
	return func(o *stackOptions) {
		o.orchOps = append(o.orchOps, opts...)
	}
}

// SimulatedHardware is the default hardware factory: every device gets a
// ready in-memory gateway.
func SimulatedHardware(logger *slog.Logger) session.HardwareFactory {
	return func(_ context.Context, deviceID string) (ports.HardwareGateway, error) {
		return memory.NewHardware(
			memory.WithReady(true),
			memory.WithHardwareLogger(logger.With("device_id", deviceID)),
		), nil
	}
}

// DriverHardware connects every device to the external driver program.
func DriverHardware(cfg process.DriverConfig, logger *slog.Logger) session.HardwareFactory {
	return func(ctx context.Context, deviceID string) (ports.HardwareGateway, error) {
		return process.Connect(ctx, cfg, deviceID, process.WithLogger(logger.With("device_id", deviceID)))
	}
}

func hardwareFactory(cfg config.HardwareConfig, logger *slog.Logger) session.HardwareFactory {
	if cfg.Backend == config.HardwareProcess {
		return DriverHardware(cfg.Driver, logger)
	}
	return SimulatedHardware(logger)
}

// Build assembles a Stack from cfg.
func Build(cfg config.Config, opts ...StackOption) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &stackOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.factory == nil {
		o.factory = hardwareFactory(cfg.Hardware, o.logger)
	}

	s := &Stack{logger: o.logger}

	if cfg.UsesRedis() {
		s.client = o.client
		if s.client == nil {
			s.client = backend.NewClient(&backend.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}
	}

	switch cfg.Ledger.Backend {
	case config.BackendRedis:
		s.Ledger = pulseredis.NewLedger(s.client, pulseredis.WithLedgerPrefix(cfg.Redis.Prefix))
	default:
		s.Ledger = memory.NewLedger()
	}

	protect, err := ledgerMiddleware(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	s.Ledger = middleware.Chain(s.Ledger, protect...)

	switch cfg.Store.Backend {
	case config.BackendRedis:
		s.Store = pulseredis.NewFromClient(s.client,
			pulseredis.WithPrefix(cfg.Redis.Prefix),
			pulseredis.WithTTL(cfg.Redis.SnapshotTTL.Duration),
		)
	case config.BackendFile:
		s.Store = file.New(cfg.Store.Dir)
	case config.BackendMemory:
		s.Store = memory.NewStore()
	}

	metrics, err := observability.NewMetrics(o.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	s.Metrics = metrics

	hooks := append([]domain.LifecycleHooks{metrics.Hooks(), observability.LogHooks(o.logger)}, o.hooks...)
	orchOps := append(cfg.SessionOptions(), session.WithLifecycleHooks(observability.Combine(hooks...)))
	if s.Store != nil {
		orchOps = append(orchOps, session.WithSnapshotStore(s.Store))
	}
	orchOps = append(orchOps, o.orchOps...)

	mgrOps := []session.ManagerOption{
		session.WithManagerLogger(o.logger),
		session.WithOrchestratorOptions(orchOps...),
	}
	if s.client != nil {
		mgrOps = append(mgrOps,
			session.WithLocker(pulseredis.NewLocker(s.client, cfg.Redis.Prefix)),
			session.WithLockTTL(cfg.Redis.LockTTL.Duration),
		)
	}
	s.Manager = session.NewManager(s.Ledger, o.factory, mgrOps...)
	return s, nil
}

// ledgerMiddleware builds the customer data protection layers. Redaction
// runs before encryption.
func ledgerMiddleware(cfg config.LedgerConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.RedactCustomers {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.RedactPatterns))
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, fmt.Errorf("invalid ledger keys: %w", err)
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

// Ping checks the Redis connection when one is configured.
func (s *Stack) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Close shuts every device down and releases the Redis connection.
func (s *Stack) Close(ctx context.Context) error {
	err := s.Manager.CloseAll(ctx)
	if s.client != nil {
		err = errors.Join(err, s.client.Close())
	}
	return err
}

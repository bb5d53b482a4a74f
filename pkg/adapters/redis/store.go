package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/sonicwave/pulse/pkg/domain"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "pulse:"

// noExpiry is the index score used when snapshots never expire (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.SnapshotStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for snapshots.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithNow overrides the clock used to score the expiry index.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(deviceID string) string {
	return s.prefix + "snapshot:" + deviceID
}

func (s *Store) indexKey() string {
	return s.prefix + "snapshot:index"
}

// Save persists the snapshot of a device.
func (s *Store) Save(ctx context.Context, deviceID string, state domain.UiState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	score := float64(s.now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(deviceID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: deviceID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot of a device.
func (s *Store) Load(ctx context.Context, deviceID string) (domain.UiState, error) {
	val, err := s.client.Get(ctx, s.key(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.UiState{}, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, deviceID)
		}
		return domain.UiState{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.UiState
	if err := json.Unmarshal(val, &state); err != nil {
		return domain.UiState{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return state, nil
}

// Delete removes the snapshot of a device.
func (s *Store) Delete(ctx context.Context, deviceID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(deviceID))
	pipe.ZRem(ctx, s.indexKey(), deviceID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the devices with a live snapshot. Expired entries are pruned
// from the index lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(s.now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired snapshots: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/sonicwave/pulse/pkg/domain"
)

// Hash fields of an operation record.
const (
	fieldID         = "id"
	fieldCustomer   = "customer"
	fieldFrequency  = "frequency"
	fieldIntensity  = "intensity"
	fieldMinutes    = "minutes"
	fieldStartedAt  = "started_at"
	fieldStoppedAt  = "stopped_at"
	fieldStopReason = "stop_reason"
	fieldStopDetail = "stop_detail"
)

// storedEvent is the list entry written for every operation event.
type storedEvent struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
	domain.OperationEvent
}

// Ledger implements ports.SessionLedger and ports.LedgerReader using Redis.
//
// Layout, relative to the prefix:
//
//	ledger:seq              INCR counter for operation IDs
//	ledger:op:<id>          hash with the operation record
//	ledger:op:<id>:events   list of JSON encoded events
//	ledger:index            sorted set of IDs scored by ID
type Ledger struct {
	client *backend.Client
	prefix string
	now    func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerPrefix sets the key prefix.
func WithLedgerPrefix(prefix string) LedgerOption {
	return func(l *Ledger) {
		l.prefix = prefix
	}
}

// WithLedgerNow overrides the timestamp source.
func WithLedgerNow(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a ledger on an existing client.
func NewLedger(client *backend.Client, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) seqKey() string   { return l.prefix + "ledger:seq" }
func (l *Ledger) indexKey() string { return l.prefix + "ledger:index" }

func (l *Ledger) opKey(id int64) string {
	return l.prefix + "ledger:op:" + strconv.FormatInt(id, 10)
}

func (l *Ledger) eventsKey(id int64) string {
	return l.opKey(id) + ":events"
}

func (l *Ledger) StartOperation(ctx context.Context, customer *domain.Customer, frequency, intensity, minutes int) (int64, error) {
	id, err := l.client.Incr(ctx, l.seqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate operation id: %w", err)
	}

	fields := map[string]any{
		fieldID:        id,
		fieldFrequency: frequency,
		fieldIntensity: intensity,
		fieldMinutes:   minutes,
		fieldStartedAt: l.now().UTC().Format(time.RFC3339Nano),
	}
	if customer != nil {
		data, err := json.Marshal(customer)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal customer: %w", err)
		}
		fields[fieldCustomer] = data
	}

	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, l.opKey(id), fields)
	pipe.ZAdd(ctx, l.indexKey(), backend.Z{Score: float64(id), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record operation %d: %w", id, err)
	}
	return id, nil
}

func (l *Ledger) StopOperation(ctx context.Context, id int64, reason domain.StopReason, detail *string) error {
	if err := l.exists(ctx, id); err != nil {
		return err
	}

	fields := map[string]any{
		fieldStoppedAt:  l.now().UTC().Format(time.RFC3339Nano),
		fieldStopReason: string(reason),
	}
	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, l.opKey(id), fields)
	if detail != nil {
		pipe.HSet(ctx, l.opKey(id), fieldStopDetail, *detail)
	} else {
		pipe.HDel(ctx, l.opKey(id), fieldStopDetail)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to stop operation %d: %w", id, err)
	}
	return nil
}

func (l *Ledger) LogOperationEvent(ctx context.Context, id int64, event domain.OperationEvent) error {
	if err := l.exists(ctx, id); err != nil {
		return err
	}

	data, err := json.Marshal(storedEvent{
		ID:             uuid.NewString(),
		At:             l.now().UTC(),
		OperationEvent: event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := l.client.RPush(ctx, l.eventsKey(id), data).Err(); err != nil {
		return fmt.Errorf("failed to log event for operation %d: %w", id, err)
	}
	return nil
}

func (l *Ledger) exists(ctx context.Context, id int64) error {
	n, err := l.client.Exists(ctx, l.opKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to look up operation %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", domain.ErrOperationNotFound, id)
	}
	return nil
}

// Operation returns the record of one operation with its events.
func (l *Ledger) Operation(ctx context.Context, id int64) (*domain.Operation, error) {
	pipe := l.client.Pipeline()
	hash := pipe.HGetAll(ctx, l.opKey(id))
	list := pipe.LRange(ctx, l.eventsKey(id), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to read operation %d: %w", id, err)
	}

	fields := hash.Val()
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrOperationNotFound, id)
	}

	op, err := decodeOperation(fields)
	if err != nil {
		return nil, fmt.Errorf("corrupt operation %d: %w", id, err)
	}

	for _, raw := range list.Val() {
		var e storedEvent
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("corrupt event in operation %d: %w", id, err)
		}
		op.Events = append(op.Events, e.OperationEvent)
	}
	return op, nil
}

// Operations returns up to limit operations, newest first. A limit of zero
// or less returns every operation.
func (l *Ledger) Operations(ctx context.Context, limit int) ([]domain.Operation, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	members, err := l.client.ZRevRange(ctx, l.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	out := make([]domain.Operation, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger index entry %q: %w", m, err)
		}
		op, err := l.Operation(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	return out, nil
}

func decodeOperation(fields map[string]string) (*domain.Operation, error) {
	op := &domain.Operation{}
	var err error

	if op.ID, err = strconv.ParseInt(fields[fieldID], 10, 64); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if op.Frequency, err = strconv.Atoi(fields[fieldFrequency]); err != nil {
		return nil, fmt.Errorf("frequency: %w", err)
	}
	if op.Intensity, err = strconv.Atoi(fields[fieldIntensity]); err != nil {
		return nil, fmt.Errorf("intensity: %w", err)
	}
	if op.Minutes, err = strconv.Atoi(fields[fieldMinutes]); err != nil {
		return nil, fmt.Errorf("minutes: %w", err)
	}
	if op.StartedAt, err = time.Parse(time.RFC3339Nano, fields[fieldStartedAt]); err != nil {
		return nil, fmt.Errorf("started_at: %w", err)
	}

	if raw, ok := fields[fieldCustomer]; ok {
		var c domain.Customer
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("customer: %w", err)
		}
		op.Customer = &c
	}
	if raw, ok := fields[fieldStoppedAt]; ok {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("stopped_at: %w", err)
		}
		op.StoppedAt = &at
		op.StopReason = domain.StopReason(fields[fieldStopReason])
	}
	if raw, ok := fields[fieldStopDetail]; ok {
		detail := raw
		op.StopDetail = &detail
	}
	return op, nil
}

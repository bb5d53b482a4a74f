package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sonicwave/pulse/pkg/domain"
)

// Ledger implements ports.SessionLedger and ports.LedgerReader in memory.
// IDs are sequential starting at 1. Safe for concurrent use.
type Ledger struct {
	mu     sync.Mutex
	nextID int64
	ops    map[int64]*domain.Operation
	now    func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		ops: make(map[int64]*domain.Operation),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) StartOperation(ctx context.Context, customer *domain.Customer, frequency, intensity, minutes int) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	op := &domain.Operation{
		ID:        l.nextID,
		Frequency: frequency,
		Intensity: intensity,
		Minutes:   minutes,
		StartedAt: l.now(),
	}
	if customer != nil {
		c := *customer
		op.Customer = &c
	}
	l.ops[op.ID] = op
	return op.ID, nil
}

func (l *Ledger) StopOperation(ctx context.Context, id int64, reason domain.StopReason, detail *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.ops[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrOperationNotFound, id)
	}
	stopped := l.now()
	op.StoppedAt = &stopped
	op.StopReason = reason
	op.StopDetail = copyString(detail)
	return nil
}

func (l *Ledger) LogOperationEvent(ctx context.Context, id int64, event domain.OperationEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.ops[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrOperationNotFound, id)
	}
	event.Detail = copyString(event.Detail)
	op.Events = append(op.Events, event)
	return nil
}

// Operation returns a copy of the record.
func (l *Ledger) Operation(ctx context.Context, id int64) (*domain.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.ops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrOperationNotFound, id)
	}
	c := cloneOperation(op)
	return &c, nil
}

// Operations returns copies of up to limit records, newest first.
func (l *Ledger) Operations(ctx context.Context, limit int) ([]domain.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]int64, 0, len(l.ops))
	for id := range l.ops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]domain.Operation, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneOperation(l.ops[id]))
	}
	return out, nil
}

func cloneOperation(op *domain.Operation) domain.Operation {
	c := *op
	if op.Customer != nil {
		cust := *op.Customer
		c.Customer = &cust
	}
	if op.StoppedAt != nil {
		t := *op.StoppedAt
		c.StoppedAt = &t
	}
	c.StopDetail = copyString(op.StopDetail)
	c.Events = append([]domain.OperationEvent(nil), op.Events...)
	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

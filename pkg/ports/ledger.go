package ports

import (
	"context"

	"github.com/sonicwave/pulse/pkg/domain"
)

// SessionLedger records the lifecycle of stimulation sessions.
type SessionLedger interface {
	// StartOperation opens a ledger record and returns its ID.
	StartOperation(ctx context.Context, customer *domain.Customer, frequency, intensity, minutes int) (int64, error)
	// StopOperation closes the record. detail may be nil.
	StopOperation(ctx context.Context, id int64, reason domain.StopReason, detail *string) error
	// LogOperationEvent appends an audit event to an open record.
	LogOperationEvent(ctx context.Context, id int64, event domain.OperationEvent) error
}

// LedgerReader is implemented by ledgers that can be inspected.
type LedgerReader interface {
	// Operation returns a single record.
	// Returns domain.ErrOperationNotFound if the ID is unknown.
	Operation(ctx context.Context, id int64) (*domain.Operation, error)
	// Operations returns up to limit records, newest first. limit <= 0 means all.
	Operations(ctx context.Context, limit int) ([]domain.Operation, error)
}

package middleware_test

import (
	"context"
	"testing"

	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	// Setup
	underlying := memory.NewLedger()
	// Mask phone numbers and e-mail addresses in details
	mw := middleware.NewPIIMiddleware([]string{`\+?\d{2}[ -]?\d{4,}`, `[\w.]+@[\w.]+`})
	secure := mw(underlying)

	ctx := context.Background()
	customer := &domain.Customer{ID: 12, Name: "Joao Dias"}

	// 1. Start
	id, err := secure.StartOperation(ctx, customer, 40, 30, 10)
	if err != nil {
		t.Fatalf("StartOperation failed: %v", err)
	}

	// Verify the caller's value is NOT MODIFIED
	if customer.Name != "Joao Dias" {
		t.Error("Middleware modified the caller's customer")
	}

	detail := "called back at 55 912345678, jd@example.com"
	if err := secure.LogOperationEvent(ctx, id, domain.OperationEvent{Type: domain.OpPause, Detail: &detail}); err != nil {
		t.Fatalf("LogOperationEvent failed: %v", err)
	}
	if err := secure.StopOperation(ctx, id, domain.StopManual, &detail); err != nil {
		t.Fatalf("StopOperation failed: %v", err)
	}

	// 2. Read from the underlying ledger (should be masked)
	op, err := underlying.Operation(ctx, id)
	if err != nil {
		t.Fatalf("Underlying read failed: %v", err)
	}

	if op.Customer.Name != "***" {
		t.Errorf("Name should be masked, got: %q", op.Customer.Name)
	}
	if op.Customer.ID != 12 {
		t.Errorf("Customer ID shouldn't be masked, got: %d", op.Customer.ID)
	}
	want := "called back at ***, ***"
	if got := *op.Events[0].Detail; got != want {
		t.Errorf("Event detail = %q, want %q", got, want)
	}
	if got := *op.StopDetail; got != want {
		t.Errorf("Stop detail = %q, want %q", got, want)
	}
	if detail != "called back at 55 912345678, jd@example.com" {
		t.Error("Middleware modified the caller's detail")
	}
}

func TestPIIMiddleware_NilValues(t *testing.T) {
	underlying := memory.NewLedger()
	secure := middleware.NewPIIMiddleware([]string{"secret"})(underlying)
	ctx := context.Background()

	id, err := secure.StartOperation(ctx, nil, 5, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := secure.StopOperation(ctx, id, domain.StopTimeout, nil); err != nil {
		t.Fatal(err)
	}

	op, err := underlying.Operation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if op.Customer != nil || op.StopDetail != nil {
		t.Errorf("Unexpected values: %+v", op)
	}
}

package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/persistence/middleware"
	"github.com/sonicwave/pulse/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func mustEncrypt(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	// Setup
	underlying := memory.NewLedger()
	secure := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	ctx := context.Background()
	customer := &domain.Customer{ID: 4, Name: "Maria Silva"}

	// 1. Start
	id, err := secure.StartOperation(ctx, customer, 40, 30, 10)
	if err != nil {
		t.Fatalf("StartOperation failed: %v", err)
	}
	if customer.Name != "Maria Silva" {
		t.Error("Middleware modified the caller's customer")
	}

	// 2. Verify underlying ledger directly (should be encrypted)
	stored, err := underlying.Operation(ctx, id)
	if err != nil {
		t.Fatalf("Underlying read failed: %v", err)
	}
	if !strings.HasPrefix(stored.Customer.Name, "enc:") {
		t.Fatalf("Expected encrypted name, found: %q", stored.Customer.Name)
	}
	if stored.Customer.ID != 4 {
		t.Errorf("Customer ID should be kept, got %d", stored.Customer.ID)
	}

	// 3. Read via middleware (should be decrypted)
	op, err := secure.Operation(ctx, id)
	if err != nil {
		t.Fatalf("Read via middleware failed: %v", err)
	}
	if op.Customer.Name != "Maria Silva" {
		t.Errorf("Expected 'Maria Silva', got %q", op.Customer.Name)
	}

	ops, err := secure.Operations(ctx, 0)
	if err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if len(ops) != 1 || ops[0].Customer.Name != "Maria Silva" {
		t.Errorf("Unexpected operations: %+v", ops)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewLedger()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	// 1. Write with the old key
	id, err := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlying).
		StartOperation(ctx, &domain.Customer{ID: 1, Name: "Ana"}, 5, 2, 1)
	if err != nil {
		t.Fatalf("StartOperation failed: %v", err)
	}

	// 2. Rotate: the old key becomes a fallback
	rotated := mustEncrypt(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)
	op, err := rotated.Operation(ctx, id)
	if err != nil {
		t.Fatalf("Read after rotation failed: %v", err)
	}
	if op.Customer.Name != "Ana" {
		t.Errorf("Expected 'Ana', got %q", op.Customer.Name)
	}

	// 3. Without the old key the record cannot be read
	stranger := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	if _, err := stranger.Operation(ctx, id); err == nil {
		t.Error("Expected decryption error without the old key")
	}
}

func TestEncryptionMiddleware_PlainRecordsPassThrough(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewLedger()
	id, err := underlying.StartOperation(ctx, &domain.Customer{ID: 2, Name: "Rui"}, 5, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	anon, err := underlying.StartOperation(ctx, nil, 5, 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	secure := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	op, err := secure.Operation(ctx, id)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if op.Customer.Name != "Rui" {
		t.Errorf("Expected 'Rui', got %q", op.Customer.Name)
	}
	if op, err := secure.Operation(ctx, anon); err != nil || op.Customer != nil {
		t.Errorf("Anonymous operation: %+v, %v", op, err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")}); err == nil {
		t.Error("Expected error for short active key")
	}
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	if err == nil {
		t.Error("Expected error for short fallback key")
	}
}

func TestChain_Order(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewLedger()
	enc := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	// PII runs first, so the masked name is what gets encrypted.
	var l ports.InspectableLedger = middleware.Chain(underlying, middleware.NewPIIMiddleware(nil), enc)
	id, err := l.StartOperation(ctx, &domain.Customer{ID: 9, Name: "Ines"}, 5, 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	op, err := l.Operation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if op.Customer.Name != "***" {
		t.Errorf("Expected masked name, got %q", op.Customer.Name)
	}
}

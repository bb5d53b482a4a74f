package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
)

// encryptedPrefix marks a customer name stored as ciphertext.
const encryptedPrefix = "enc:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// Validate checks the key sizes.
func (c EncryptionConfig) Validate() error {
	if len(c.ActiveKey) != 32 {
		return errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range c.FallbackKeys {
		if len(k) != 32 {
			return fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	return nil
}

type encryptionMiddleware struct {
	ports.InspectableLedger
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores customer names
// encrypted with AES-GCM and decrypts them on read. Names written before
// encryption was enabled are returned as they are.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return func(next ports.InspectableLedger) ports.InspectableLedger {
		return &encryptionMiddleware{InspectableLedger: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) StartOperation(ctx context.Context, customer *domain.Customer, frequency, intensity, minutes int) (int64, error) {
	if customer != nil && customer.Name != "" {
		ciphertext, err := encrypt([]byte(customer.Name), m.config.ActiveKey)
		if err != nil {
			return 0, fmt.Errorf("failed to encrypt customer: %w", err)
		}
		sealed := *customer
		sealed.Name = encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
		customer = &sealed
	}
	return m.InspectableLedger.StartOperation(ctx, customer, frequency, intensity, minutes)
}

func (m *encryptionMiddleware) Operation(ctx context.Context, id int64) (*domain.Operation, error) {
	op, err := m.InspectableLedger.Operation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.open(op); err != nil {
		return nil, fmt.Errorf("operation %d: %w", id, err)
	}
	return op, nil
}

func (m *encryptionMiddleware) Operations(ctx context.Context, limit int) ([]domain.Operation, error) {
	ops, err := m.InspectableLedger.Operations(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		if err := m.open(&ops[i]); err != nil {
			return nil, fmt.Errorf("operation %d: %w", ops[i].ID, err)
		}
	}
	return ops, nil
}

func (m *encryptionMiddleware) open(op *domain.Operation) error {
	if op.Customer == nil || !strings.HasPrefix(op.Customer.Name, encryptedPrefix) {
		return nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(op.Customer.Name, encryptedPrefix))
	if err != nil {
		return fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return fmt.Errorf("failed to decrypt customer: %w", err)
	}
	customer := *op.Customer
	customer.Name = string(plain)
	op.Customer = &customer
	return nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

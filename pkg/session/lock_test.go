package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	factory := func(ctx context.Context, id string) (ports.HardwareGateway, error) {
		return memory.NewHardware(), nil
	}
	mgr := NewManager(memory.NewLedger(), factory)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("device-%d", i)
		_ = mgr.WithLock(ctx, id, func(context.Context) error { return nil })
	}

	assert.Empty(t, mgr.locks, "lock entries must be released after use")
}

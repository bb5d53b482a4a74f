package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates device ownership across multiple host
// replicas, so two processes never drive the same device.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is done.
	// The returned UnlockFunc MUST be called to release the lock; the TTL
	// bounds how long a crashed holder keeps it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

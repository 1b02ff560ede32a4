package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serialises turns for the same conversation across
// several processes sharing one ScopeStore.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The returned
	// UnlockFunc must be called; the lock expires after ttl regardless.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

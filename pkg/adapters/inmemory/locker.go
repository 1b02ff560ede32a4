package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/statepath/pkg/ports"
)

// Locker implements ports.DistributedLocker for a single process. Locks
// that are not released expire after their TTL.
type Locker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	freed chan struct{}
}

// NewLocker creates a Locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]time.Time), freed: make(chan struct{})}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		expiry, busy := l.held[key]
		if !busy || time.Now().After(expiry) {
			l.held[key] = time.Now().Add(ttl)
			l.mu.Unlock()
			return l.unlockFunc(key), nil
		}
		wait := l.freed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		case <-time.After(time.Until(expiry)):
		}
	}
}

func (l *Locker) unlockFunc(key string) ports.UnlockFunc {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, key)
			close(l.freed)
			l.freed = make(chan struct{})
		})
		return nil
	}
}

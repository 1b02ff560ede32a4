package inmemory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/statepath/pkg/adapters/inmemory"
	"github.com/aretw0/statepath/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunScopeStoreContract(t, inmemory.NewStore())
}

func TestStore_SaveNil(t *testing.T) {
	store := inmemory.NewStore()
	key := ports.ScopeKey{Scope: "user", ID: "u"}
	require.NoError(t, store.Save(context.Background(), key, nil))

	v, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, v)
}

func TestLocker_Serialises(t *testing.T) {
	locker := inmemory.NewLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "conv", time.Minute)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocker_ContextCancelled(t *testing.T) {
	locker := inmemory.NewLocker()
	unlock, err := locker.Lock(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	defer func() { _ = unlock(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_Expires(t *testing.T) {
	locker := inmemory.NewLocker()
	_, err := locker.Lock(context.Background(), "k", 5*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := locker.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, unlock(ctx))
}

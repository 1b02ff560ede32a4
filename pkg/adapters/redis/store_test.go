package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/statepath/pkg/adapters/redis"
	"github.com/aretw0/statepath/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunScopeStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, ports.ScopeKey{Scope: "user", ID: "u1"}, map[string]any{"name": "Joe"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:user:u1"))
	assert.True(t, mr.Exists("custom:app:user:index"))

	ids, err := store.List(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()
	key := ports.ScopeKey{Scope: "conversation", ID: "c1"}

	require.NoError(t, store.Save(ctx, key, map[string]any{"topic": "x"}))

	mr.FastForward(2 * time.Second)

	_, err := store.Load(ctx, key)
	assert.ErrorIs(t, err, ports.ErrScopeNotFound)
}

func TestRedisStore_LoadCorrupt(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	require.NoError(t, mr.Set("statepath:scope:user:bad", "{not json"))

	_, err := store.Load(context.Background(), ports.ScopeKey{Scope: "user", ID: "bad"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrScopeNotFound)
}

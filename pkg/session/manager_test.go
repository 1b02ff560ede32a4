package session_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/statepath/pkg/adapters/inmemory"
	"github.com/aretw0/statepath/pkg/memory"
	"github.com/aretw0/statepath/pkg/ports"
	"github.com/aretw0/statepath/pkg/session"
)

// countingStore records writes and can simulate latency or failures.
type countingStore struct {
	ports.ScopeStore

	mu      sync.Mutex
	saves   []string
	deletes []string
	delay   time.Duration
	saveErr error
}

func newCountingStore() *countingStore {
	return &countingStore{ScopeStore: inmemory.NewStore()}
}

func (s *countingStore) Save(ctx context.Context, key ports.ScopeKey, value map[string]any) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.saves = append(s.saves, key.String())
	s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.ScopeStore.Save(ctx, key, value)
}

func (s *countingStore) Load(ctx context.Context, key ports.ScopeKey) (map[string]any, error) {
	time.Sleep(s.delay)
	return s.ScopeStore.Load(ctx, key)
}

func (s *countingStore) Delete(ctx context.Context, key ports.ScopeKey) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, key.String())
	s.mu.Unlock()
	return s.ScopeStore.Delete(ctx, key)
}

func setValue(path string, value any) session.TurnFunc {
	return func(ctx context.Context, turn *memory.Turn) error {
		return memory.NewStateManager(memory.NewDialogContext(turn)).SetValue(path, value)
	}
}

func TestManager_RunTurn_PersistsAcrossTurns(t *testing.T) {
	store := newCountingStore()
	mgr := session.NewManager(store)
	ctx := context.Background()
	key := session.TurnKey{ConversationID: "c1", UserID: "u1"}

	require.NoError(t, mgr.RunTurn(ctx, key, setValue("user.name", "Joe")))
	require.NoError(t, mgr.RunTurn(ctx, key, setValue("conversation.topic", "travel")))

	err := mgr.RunTurn(ctx, key, func(ctx context.Context, turn *memory.Turn) error {
		sm := memory.NewStateManager(memory.NewDialogContext(turn))
		name, err := sm.GetValue("user.name")
		require.NoError(t, err)
		assert.Equal(t, "Joe", name)

		topic, err := sm.GetValue("conversation.topic")
		require.NoError(t, err)
		assert.Equal(t, "travel", topic)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"user/u1", "conversation/c1"}, store.saves, "only changed scopes are saved")
}

func TestManager_RunTurn_TurnScopeIsNotPersisted(t *testing.T) {
	store := newCountingStore()
	mgr := session.NewManager(store)

	require.NoError(t, mgr.RunTurn(context.Background(), session.TurnKey{UserID: "u1"}, setValue("turn.x", 1)))
	assert.Empty(t, store.saves)
}

func TestManager_RunTurn_ErrorSkipsSave(t *testing.T) {
	store := newCountingStore()
	mgr := session.NewManager(store)
	boom := errors.New("boom")

	err := mgr.RunTurn(context.Background(), session.TurnKey{UserID: "u1"}, func(ctx context.Context, turn *memory.Turn) error {
		require.NoError(t, setValue("user.name", "lost")(ctx, turn))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.saves)
}

func TestManager_RunTurn_DeletedScope(t *testing.T) {
	store := newCountingStore()
	mgr := session.NewManager(store)
	ctx := context.Background()
	key := session.TurnKey{UserID: "u1"}

	require.NoError(t, mgr.RunTurn(ctx, key, setValue("user.name", "Joe")))
	require.NoError(t, mgr.RunTurn(ctx, key, func(ctx context.Context, turn *memory.Turn) error {
		return memory.NewStateManager(memory.NewDialogContext(turn)).RemoveValue("user")
	}))

	assert.Equal(t, []string{"user/u1"}, store.deletes)
	_, err := store.Load(ctx, ports.ScopeKey{Scope: "user", ID: "u1"})
	assert.ErrorIs(t, err, ports.ErrScopeNotFound)
}

func TestManager_RunTurn_NonObjectScope(t *testing.T) {
	mgr := session.NewManager(newCountingStore())
	err := mgr.RunTurn(context.Background(), session.TurnKey{UserID: "u1"}, func(ctx context.Context, turn *memory.Turn) error {
		turn.SetScope("user", "not an object")
		return nil
	})
	assert.Error(t, err)
}

func TestManager_RunTurn_EmptyKey(t *testing.T) {
	mgr := session.NewManager(newCountingStore())
	err := mgr.RunTurn(context.Background(), session.TurnKey{}, setValue("user.x", 1))
	assert.ErrorIs(t, err, session.ErrEmptyKey)
}

func TestManager_RunTurn_SaveFailureIsLogged(t *testing.T) {
	store := newCountingStore()
	store.saveErr = errors.New("disk full")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mgr := session.NewManager(store, session.WithLogger(logger))

	err := mgr.RunTurn(context.Background(), session.TurnKey{UserID: "u1"}, setValue("user.name", "Joe"))
	assert.ErrorIs(t, err, store.saveErr)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "user/u1")
}

func TestManager_RunTurn_TurnOptions(t *testing.T) {
	mgr := session.NewManager(newCountingStore(), session.WithTurnOptions(
		memory.WithSettings(map[string]any{"greeting": "hi"}),
	))
	err := mgr.RunTurn(context.Background(), session.TurnKey{UserID: "u1"}, func(ctx context.Context, turn *memory.Turn) error {
		v, err := memory.NewStateManager(memory.NewDialogContext(turn)).GetValue("settings.greeting")
		require.NoError(t, err)
		assert.Equal(t, "hi", v)
		return nil
	})
	require.NoError(t, err)
}

func TestManager_RunTurn_Serialised(t *testing.T) {
	store := newCountingStore()
	store.delay = time.Millisecond
	mgr := session.NewManager(store)
	ctx := context.Background()
	key := session.TurnKey{ConversationID: "race"}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.RunTurn(ctx, key, func(ctx context.Context, turn *memory.Turn) error {
				sm := memory.NewStateManager(memory.NewDialogContext(turn))
				n, err := sm.GetValueOrDefault("conversation.count", 0)
				if err != nil {
					return err
				}
				return sm.SetValue("conversation.count", n.(int)+1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := store.Load(ctx, ports.ScopeKey{Scope: "conversation", ID: "race"})
	require.NoError(t, err)
	assert.Equal(t, 10, v["count"], "read-modify-write turns never lose updates")
}

type recordingLocker struct {
	ports.DistributedLocker
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return l.DistributedLocker.Lock(ctx, key, ttl)
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{DistributedLocker: inmemory.NewLocker()}
	mgr := session.NewManager(newCountingStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))

	require.NoError(t, mgr.RunTurn(context.Background(), session.TurnKey{ConversationID: "c1", UserID: "u1"}, setValue("user.a", 1)))
	require.NoError(t, mgr.RunTurn(context.Background(), session.TurnKey{UserID: "u2"}, setValue("user.a", 1)))

	assert.Equal(t, []string{"conversation:c1", "user:u2"}, locker.keys)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/mohae/deepcopy"

	"github.com/aretw0/statepath/internal/logging"
	"github.com/aretw0/statepath/pkg/memory"
	"github.com/aretw0/statepath/pkg/ports"
)

// ErrEmptyKey is returned when a TurnKey names neither a conversation nor
// a user.
var ErrEmptyKey = errors.New("turn key has no conversation or user")

// DefaultLockTTL bounds how long a distributed lock outlives a crashed turn.
const DefaultLockTTL = 30 * time.Second

// TurnKey identifies the persisted scopes a turn works on. Either field may
// be empty, in which case the corresponding scope starts empty and is not
// saved.
type TurnKey struct {
	ConversationID string
	UserID         string
}

func (k TurnKey) lockKey() string {
	if k.ConversationID != "" {
		return "conversation:" + k.ConversationID
	}
	return "user:" + k.UserID
}

func (k TurnKey) scopes() map[string]ports.ScopeKey {
	keys := make(map[string]ports.ScopeKey, 2)
	if k.UserID != "" {
		keys[memory.ScopeUser] = ports.ScopeKey{Scope: memory.ScopeUser, ID: k.UserID}
	}
	if k.ConversationID != "" {
		keys[memory.ScopeConversation] = ports.ScopeKey{Scope: memory.ScopeConversation, ID: k.ConversationID}
	}
	return keys
}

// TurnFunc does the work of one turn. Scope changes are saved only when it
// returns nil.
type TurnFunc func(ctx context.Context, turn *memory.Turn) error

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises turns per conversation and persists the scopes they
// change. Unused locks are dropped by reference counting.
type Manager struct {
	store ports.ScopeStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	turn    []memory.TurnOption
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL passed to the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTurnOptions applies opts to every Turn the Manager creates, e.g.
// memory.WithSettings.
func WithTurnOptions(opts ...memory.TurnOption) Option {
	return func(m *Manager) {
		m.turn = append(m.turn, opts...)
	}
}

// NewManager creates a Manager backed by store.
func NewManager(store ports.ScopeStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying scope store.
func (m *Manager) Store() ports.ScopeStore {
	return m.store
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking it.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock runs fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// RunTurn loads the scopes named by key, runs fn with a new Turn holding
// them, and saves the scopes fn changed. Scopes fn deleted from the turn
// are deleted from the store.
func (m *Manager) RunTurn(ctx context.Context, key TurnKey, fn TurnFunc) error {
	if key.ConversationID == "" && key.UserID == "" {
		return ErrEmptyKey
	}
	return m.WithLock(ctx, key.lockKey(), func(ctx context.Context) error {
		scopes := key.scopes()
		baseline := make(map[string]map[string]any, len(scopes))
		opts := slices.Clone(m.turn)

		for _, name := range slices.Sorted(maps.Keys(scopes)) {
			value, err := m.store.Load(ctx, scopes[name])
			switch {
			case errors.Is(err, ports.ErrScopeNotFound):
				value = make(map[string]any)
			case err != nil:
				m.logger.Warn("Failed to load scope", "scope", scopes[name].String(), "err", err)
				return fmt.Errorf("failed to load %s: %w", scopes[name], err)
			default:
				baseline[name] = deepcopy.Copy(value).(map[string]any)
			}
			opts = append(opts, memory.WithScope(name, value))
		}

		turn := memory.NewTurn(opts...)
		if err := fn(ctx, turn); err != nil {
			return err
		}
		return m.persist(ctx, turn, scopes, baseline)
	})
}

func (m *Manager) persist(ctx context.Context, turn *memory.Turn, scopes map[string]ports.ScopeKey, baseline map[string]map[string]any) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(scopes)) {
		key := scopes[name]
		prev, existed := baseline[name]

		current, ok := turn.Scope(name)
		if !ok || current == nil {
			if !existed {
				continue
			}
			if err := m.store.Delete(ctx, key); err != nil {
				m.logger.Warn("Failed to delete scope", "scope", key.String(), "err", err)
				errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
			}
			continue
		}

		value, ok := current.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("scope %s holds %T, want an object", name, current))
			continue
		}
		delta := Diff(prev, value)
		if len(delta) == 0 {
			continue
		}
		m.logger.Debug("Saving scope", "scope", key.String(), "changed", slices.Sorted(maps.Keys(delta)))
		if err := m.store.Save(ctx, key, value); err != nil {
			m.logger.Warn("Failed to save scope", "scope", key.String(), "err", err)
			errs = append(errs, fmt.Errorf("failed to save %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/statepath/pkg/ports"
)

// noExpiry is the index score used when scopes never expire (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.ScopeStore using Redis. Each scope value is a
// JSON string; a sorted set per scope name indexes the stored IDs by
// expiry time.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires scopes that have not been saved for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a Store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "statepath:scope:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(key ports.ScopeKey) string {
	return s.prefix + key.Scope + ":" + key.ID
}

func (s *Store) indexKey(scope string) string {
	return s.prefix + scope + ":index"
}

// Save stores value under key, replacing what was there.
func (s *Store) Save(ctx context.Context, key ports.ScopeKey, value map[string]any) error {
	if value == nil {
		value = map[string]any{}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal scope %s: %w", key, err)
	}

	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(key.Scope), backend.Z{Score: score, Member: key.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save scope %s: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(ctx context.Context, key ports.ScopeKey) (map[string]any, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", ports.ErrScopeNotFound, key)
		}
		return nil, fmt.Errorf("failed to load scope %s: %w", key, err)
	}

	var value map[string]any
	if err := json.Unmarshal([]byte(val), &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scope %s: %w", key, err)
	}
	if value == nil {
		value = map[string]any{}
	}
	return value, nil
}

// Delete removes the value stored under key.
func (s *Store) Delete(ctx context.Context, key ports.ScopeKey) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(key))
	pipe.ZRem(ctx, s.indexKey(key.Scope), key.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete scope %s: %w", key, err)
	}
	return nil
}

// List returns the IDs stored for scope. Expired entries are pruned from
// the index first.
func (s *Store) List(ctx context.Context, scope string) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(scope), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired scopes: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(scope), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

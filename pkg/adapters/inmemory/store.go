// Package inmemory provides process-local implementations of the ports
// interfaces, used by tests, the CLI and single-instance deployments.
package inmemory

import (
	"context"
	"sync"

	"github.com/mohae/deepcopy"

	"github.com/aretw0/statepath/pkg/ports"
)

// Store implements ports.ScopeStore in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]map[string]map[string]any)}
}

// Save stores a deep copy of value.
func (s *Store) Save(ctx context.Context, key ports.ScopeKey, value map[string]any) error {
	copied := copyScope(value)

	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.data[key.Scope]
	if !ok {
		ids = make(map[string]map[string]any)
		s.data[key.Scope] = ids
	}
	ids[key.ID] = copied
	return nil
}

// Load returns a deep copy of the stored value.
func (s *Store) Load(ctx context.Context, key ports.ScopeKey) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key.Scope][key.ID]
	if !ok {
		return nil, ports.ErrScopeNotFound
	}
	return copyScope(value), nil
}

// Delete removes the value stored under key.
func (s *Store) Delete(ctx context.Context, key ports.ScopeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[key.Scope], key.ID)
	return nil
}

// List returns the IDs stored for scope.
func (s *Store) List(ctx context.Context, scope string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data[scope]))
	for id := range s.data[scope] {
		ids = append(ids, id)
	}
	return ids, nil
}

func copyScope(v map[string]any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return deepcopy.Copy(v).(map[string]any)
}

package ports

import (
	"context"
	"errors"
)

// ErrScopeNotFound is returned by ScopeStore.Load when nothing is stored
// under the key.
var ErrScopeNotFound = errors.New("scope not found")

// ScopeKey addresses one persisted scope value, e.g. {Scope: "user", ID: "u-42"}.
type ScopeKey struct {
	Scope string
	ID    string
}

func (k ScopeKey) String() string {
	return k.Scope + "/" + k.ID
}

// ScopeStore persists the scopes that outlive a turn (user and
// conversation). Implementations must not retain or share the maps they
// are given or return.
type ScopeStore interface {
	// Save replaces the value stored under key.
	Save(ctx context.Context, key ScopeKey, value map[string]any) error

	// Load returns the value stored under key.
	// Returns ErrScopeNotFound if there is none.
	Load(ctx context.Context, key ScopeKey) (map[string]any, error)

	// Delete removes the value stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key ScopeKey) error

	// List returns the IDs stored for a scope name, in no particular order.
	List(ctx context.Context, scope string) ([]string, error)
}

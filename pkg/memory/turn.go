package memory

import (
	"maps"
	"slices"
	"strings"

	"github.com/mohae/deepcopy"
)

// Well-known scope names.
const (
	ScopeTurn         = "turn"
	ScopeDialog       = "dialog"
	ScopeUser         = "user"
	ScopeConversation = "conversation"
	ScopeSettings     = "settings"
	ScopeClass        = "class"
)

// Turn is the per-turn scope table. Scope names are case-insensitive and
// stored lower-cased. A Turn is owned by a single turn and is not safe for
// concurrent use.
type Turn struct {
	scopes map[string]any
}

// TurnOption configures a Turn.
type TurnOption func(*Turn)

// WithScope seeds a named scope. The value is stored as given.
func WithScope(name string, value any) TurnOption {
	return func(t *Turn) {
		t.SetScope(name, value)
	}
}

// WithSettings seeds the settings scope with a private copy of settings so
// writes during the turn never reach the shared configuration.
func WithSettings(settings map[string]any) TurnOption {
	return func(t *Turn) {
		if settings == nil {
			return
		}
		t.SetScope(ScopeSettings, deepcopy.Copy(settings))
	}
}

// NewTurn creates a scope table. The turn scope is created if no option
// supplied one.
func NewTurn(opts ...TurnOption) *Turn {
	t := &Turn{scopes: make(map[string]any)}
	for _, opt := range opts {
		opt(t)
	}
	if _, ok := t.scopes[ScopeTurn]; !ok {
		t.scopes[ScopeTurn] = make(map[string]any)
	}
	return t
}

// Scope returns the named scope.
func (t *Turn) Scope(name string) (any, bool) {
	v, ok := t.scopes[strings.ToLower(name)]
	return v, ok
}

// SetScope creates or replaces the named scope.
func (t *Turn) SetScope(name string, value any) {
	t.scopes[strings.ToLower(name)] = value
}

// DeleteScope removes the named scope.
func (t *Turn) DeleteScope(name string) {
	delete(t.scopes, strings.ToLower(name))
}

// Names returns the scope names in sorted order.
func (t *Turn) Names() []string {
	return slices.Sorted(maps.Keys(t.scopes))
}

// Scopes returns a shallow copy of the scope table.
func (t *Turn) Scopes() map[string]any {
	return maps.Clone(t.scopes)
}

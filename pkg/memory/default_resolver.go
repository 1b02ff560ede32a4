package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/statepath/pkg/expression"
)

// DefaultPathResolver walks nested plain-object memory across the memory
// view. It matches every path and is always consulted last.
type DefaultPathResolver struct {
	walker expression.Walker
}

// NewDefaultPathResolver returns a resolver that matches property names
// case-insensitively unless caseSensitive is set.
func NewDefaultPathResolver(caseSensitive bool) *DefaultPathResolver {
	return &DefaultPathResolver{walker: expression.Walker{CaseSensitive: caseSensitive}}
}

func (r *DefaultPathResolver) Matched(string) bool { return true }

func (r *DefaultPathResolver) String() string { return "default" }

// scopeKey finds the frame key for the first path segment. Top-level names
// are always matched case-insensitively.
func scopeKey(frame map[string]any, seg expression.Segment) (string, bool) {
	if seg.Kind != expression.NameSegment {
		return "", false
	}
	return expression.Walker{}.FindKey(frame, seg.Name)
}

func (r *DefaultPathResolver) GetValue(sm *StateManager, path string) (any, bool, error) {
	p, err := sm.parsePath(path)
	if err != nil {
		return nil, false, err
	}
	for i, frame := range sm.view() {
		var (
			key string
			ok  bool
		)
		switch {
		case i == 0:
			key, ok = scopeKey(frame, p[0])
		case p[0].Kind == expression.NameSegment:
			key, ok = r.walker.FindKey(frame, p[0].Name)
		}
		if !ok {
			continue
		}
		if v, ok := r.walker.Get(frame[key], p[1:]); ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}

var errNoActiveDialog = errors.New("no active dialog")

// target parses path for a write and returns the scopes frame with the
// first segment canonicalised to the frame's key.
func (r *DefaultPathResolver) target(sm *StateManager, op, path string) (map[string]any, expression.Path, error) {
	p, err := sm.parsePath(path)
	if err != nil {
		return nil, nil, err
	}
	if p[0].Kind != expression.NameSegment {
		return nil, nil, fmt.Errorf("%w: cannot %s %q: path must start with a scope name", ErrInvalidOperation, op, path)
	}
	if strings.EqualFold(p[0].Name, ScopeDialog) {
		if len(p) == 1 {
			return nil, nil, fmt.Errorf("%w: cannot %s the %s scope", ErrInvalidOperation, op, ScopeDialog)
		}
		if sm.dc.Dialog == nil {
			return nil, nil, fmt.Errorf("%w: cannot %s %q: %w", ErrInvalidOperation, op, path, errNoActiveDialog)
		}
	}

	frame := sm.scopesFrame()
	key, ok := scopeKey(frame, p[0])
	if !ok {
		key = strings.ToLower(p[0].Name)
	}
	canonical := make(expression.Path, len(p))
	copy(canonical, p)
	canonical[0] = expression.Name(key)
	return frame, canonical, nil
}

func (r *DefaultPathResolver) SetValue(sm *StateManager, path string, value any) error {
	frame, p, err := r.target(sm, "set", path)
	if err != nil {
		return err
	}
	if len(p) == 1 && p[0].Name == ScopeClass && sm.dc.Dialog != nil {
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("%w: cannot set %q: the %s scope of an active dialog must be an object, got %T",
				ErrInvalidOperation, path, ScopeClass, value)
		}
	}
	if err := r.walker.Set(frame, p, value); err != nil {
		return fmt.Errorf("cannot set %q: %w", path, err)
	}
	sm.commit(frame)
	sm.trackChange(p)
	return nil
}

// RemoveValue deletes the value at path. A path under the dialog scope
// with no active dialog is missing, so removing it is a no-op.
func (r *DefaultPathResolver) RemoveValue(sm *StateManager, path string) error {
	frame, p, err := r.target(sm, "remove", path)
	if errors.Is(err, errNoActiveDialog) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.walker.Remove(frame, p) {
		sm.commit(frame)
		sm.trackChange(p)
	}
	return nil
}

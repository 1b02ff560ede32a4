package memory

import (
	"fmt"
	"strings"
)

// PathResolver claims paths and performs reads, writes and removals for
// them. GetValue reports found=false for missing values so the caller's
// default applies.
type PathResolver interface {
	Matched(path string) bool
	GetValue(sm *StateManager, path string) (value any, found bool, err error)
	SetValue(sm *StateManager, path string, value any) error
	RemoveValue(sm *StateManager, path string) error
}

// AliasResolver rewrites paths starting with a prefix and delegates the
// rewritten path back to the state manager.
type AliasResolver struct {
	alias  string
	mapper func(path string) string
}

// NewAliasResolver returns a resolver for paths starting with alias.
// mapper receives the full path, alias included.
func NewAliasResolver(alias string, mapper func(path string) string) *AliasResolver {
	return &AliasResolver{alias: alias, mapper: mapper}
}

// NewPrefixAlias returns a resolver that replaces alias with prefix, so
// NewPrefixAlias("#", "turn.recognized.intents.") maps "#book" to
// "turn.recognized.intents.book".
func NewPrefixAlias(alias, prefix string) *AliasResolver {
	return NewAliasResolver(alias, func(path string) string {
		return prefix + strings.TrimPrefix(path, alias)
	})
}

func (r *AliasResolver) Matched(path string) bool {
	return len(path) > 0 && r.alias != "" && strings.HasPrefix(path, r.alias)
}

func (r *AliasResolver) GetValue(sm *StateManager, path string) (any, bool, error) {
	return sm.lookup(r.mapper(path))
}

func (r *AliasResolver) SetValue(sm *StateManager, path string, value any) error {
	return sm.SetValue(r.mapper(path), value)
}

func (r *AliasResolver) RemoveValue(sm *StateManager, path string) error {
	return sm.RemoveValue(r.mapper(path))
}

func (r *AliasResolver) String() string {
	return "alias(" + r.alias + ")"
}

// ParentStateResolver maps "$name" to "dialog.name" on the parent dialog.
type ParentStateResolver struct {
	alias string
}

// NewParentStateResolver returns a parent-state resolver. An empty alias
// defaults to "$".
func NewParentStateResolver(alias string) *ParentStateResolver {
	if alias == "" {
		alias = "$"
	}
	return &ParentStateResolver{alias: alias}
}

func (r *ParentStateResolver) Matched(path string) bool {
	return strings.HasPrefix(path, r.alias)
}

func (r *ParentStateResolver) rewrite(sm *StateManager, path string) (*StateManager, string, error) {
	parent := sm.Parent()
	if parent == nil {
		return nil, "", fmt.Errorf("%w: cannot resolve %q", ErrNoParentDialog, path)
	}
	rest := strings.TrimPrefix(path, r.alias)
	if strings.HasPrefix(rest, "[") || strings.HasPrefix(rest, ".") || rest == "" {
		return parent, ScopeDialog + rest, nil
	}
	return parent, ScopeDialog + "." + rest, nil
}

func (r *ParentStateResolver) GetValue(sm *StateManager, path string) (any, bool, error) {
	parent, rewritten, err := r.rewrite(sm, path)
	if err != nil {
		return nil, false, err
	}
	return parent.lookup(rewritten)
}

func (r *ParentStateResolver) SetValue(sm *StateManager, path string, value any) error {
	parent, rewritten, err := r.rewrite(sm, path)
	if err != nil {
		return err
	}
	return parent.SetValue(rewritten, value)
}

func (r *ParentStateResolver) RemoveValue(sm *StateManager, path string) error {
	parent, rewritten, err := r.rewrite(sm, path)
	if err != nil {
		return err
	}
	return parent.RemoveValue(rewritten)
}

func (r *ParentStateResolver) String() string {
	return "parent(" + r.alias + ")"
}

package memory

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mohae/deepcopy"

	"github.com/aretw0/statepath/internal/logging"
	"github.com/aretw0/statepath/pkg/expression"
)

// Observer is notified after every resolver dispatch. Implementations must
// be safe for concurrent use.
type Observer interface {
	ObserveResolve(op, resolver string, err error)
}

// StateManager reads and writes paths across the scopes visible from a
// dialog context. It implements expression.ScopedMemory.
//
// Every access rebuilds the memory view: a scopes frame holding the turn's
// scope table plus the active dialog's dialog and class scopes, followed by
// closure frames, most recent first. Reads return the first frame that
// resolves the whole path; writes go to the scopes frame and new or
// removed top-level scopes are committed back to the turn.
type StateManager struct {
	dc            *DialogContext
	registry      *ResolverRegistry
	fallback      *DefaultPathResolver
	caseSensitive bool
	closures      []map[string]any
	logger        *slog.Logger
	observer      Observer
}

// Option configures a StateManager.
type Option func(*StateManager)

// WithRegistry sets the resolver registry. The default is a sealed
// StandardRegistry.
func WithRegistry(r *ResolverRegistry) Option {
	return func(sm *StateManager) {
		if r != nil {
			sm.registry = r
		}
	}
}

// WithCaseSensitive makes the default resolver match property names
// exactly. Scope names stay case-insensitive.
func WithCaseSensitive(caseSensitive bool) Option {
	return func(sm *StateManager) {
		sm.caseSensitive = caseSensitive
	}
}

// WithLogger configures a logger for resolver dispatch.
func WithLogger(logger *slog.Logger) Option {
	return func(sm *StateManager) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithObserver installs a dispatch observer.
func WithObserver(o Observer) Option {
	return func(sm *StateManager) {
		sm.observer = o
	}
}

var standardRegistry = func() *ResolverRegistry {
	r := StandardRegistry()
	r.Seal()
	return r
}()

// NewStateManager creates a state manager over dc. A nil dc gets a fresh
// turn with no active dialog.
func NewStateManager(dc *DialogContext, opts ...Option) *StateManager {
	if dc == nil {
		dc = NewDialogContext(nil)
	}
	if dc.Turn == nil {
		dc.Turn = NewTurn()
	}
	sm := &StateManager{
		dc:       dc,
		registry: standardRegistry,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	sm.fallback = NewDefaultPathResolver(sm.caseSensitive)
	return sm
}

// DialogContext returns the context the manager was created for.
func (sm *StateManager) DialogContext() *DialogContext {
	return sm.dc
}

// Parent returns a manager for the parent dialog context, or nil when the
// active dialog has no parent. Closure frames are not inherited.
func (sm *StateManager) Parent() *StateManager {
	if sm.dc.Parent == nil {
		return nil
	}
	return &StateManager{
		dc:            sm.dc.Parent,
		registry:      sm.registry,
		fallback:      sm.fallback,
		caseSensitive: sm.caseSensitive,
		logger:        sm.logger,
		observer:      sm.observer,
	}
}

// GetScope returns a scope by name. The dialog scope is the active dialog's
// state and is absent when no dialog is active.
func (sm *StateManager) GetScope(name string) (any, bool) {
	switch strings.ToLower(name) {
	case ScopeDialog:
		if sm.dc.Dialog == nil {
			return nil, false
		}
		return sm.dialogState(), true
	case ScopeClass:
		if sm.dc.Dialog != nil && sm.dc.Dialog.Class != nil {
			return sm.dc.Dialog.Class, true
		}
	}
	return sm.dc.Turn.Scope(name)
}

// SetScope replaces or creates a scope for the rest of the turn. The dialog
// scope is reserved.
func (sm *StateManager) SetScope(name string, value any) error {
	if strings.EqualFold(name, ScopeDialog) {
		return fmt.Errorf("%w: the %s scope cannot be replaced", ErrInvalidOperation, ScopeDialog)
	}
	sm.dc.Turn.SetScope(name, value)
	return nil
}

// GetValue returns the value at path, or nil when any segment is missing.
func (sm *StateManager) GetValue(path string) (any, error) {
	v, _, err := sm.lookup(path)
	return v, err
}

// GetValueOrDefault returns the value at path, or def when it is missing
// or nil.
func (sm *StateManager) GetValueOrDefault(path string, def any) (any, error) {
	v, found, err := sm.lookup(path)
	if err != nil {
		return nil, err
	}
	if !found || v == nil {
		return def, nil
	}
	return v, nil
}

// SetValue assigns value at path, creating intermediate objects as needed.
func (sm *StateManager) SetValue(path string, value any) error {
	r := sm.resolverFor(path)
	err := r.SetValue(sm, path, value)
	sm.observe("set", path, r, err)
	return err
}

// RemoveValue deletes the value at path. Missing intermediates are not an
// error.
func (sm *StateManager) RemoveValue(path string) error {
	r := sm.resolverFor(path)
	err := r.RemoveValue(sm, path)
	sm.observe("remove", path, r, err)
	return err
}

// PushClosureScope pushes a transient frame consulted ahead of the scopes.
func (sm *StateManager) PushClosureScope(frame map[string]any) {
	if frame == nil {
		frame = make(map[string]any)
	}
	sm.closures = append(sm.closures, frame)
}

// PopClosureScope drops the most recent closure frame. It is a no-op when
// no frame is pushed.
func (sm *StateManager) PopClosureScope() {
	if len(sm.closures) == 0 {
		return
	}
	sm.closures = sm.closures[:len(sm.closures)-1]
}

// Snapshot returns a deep copy of every scope except settings, suitable
// for logging.
func (sm *StateManager) Snapshot() map[string]any {
	frame := sm.scopesFrame()
	delete(frame, ScopeSettings)
	return deepcopy.Copy(frame).(map[string]any)
}

func (sm *StateManager) lookup(path string) (any, bool, error) {
	r := sm.resolverFor(path)
	v, found, err := r.GetValue(sm, path)
	sm.observe("get", path, r, err)
	return v, found, err
}

func (sm *StateManager) resolverFor(path string) PathResolver {
	if r := sm.registry.match(path); r != nil {
		return r
	}
	return sm.fallback
}

func (sm *StateManager) observe(op, path string, r PathResolver, err error) {
	name := resolverName(r)
	sm.logger.Debug("resolve", "op", op, "path", path, "resolver", name, "err", err)
	if sm.observer != nil {
		sm.observer.ObserveResolve(op, name, err)
	}
}

func resolverName(r PathResolver) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

func (sm *StateManager) parsePath(path string) (expression.Path, error) {
	return expression.ParsePath(path, expression.IndexEvaluatorFor(sm))
}

func (sm *StateManager) dialogState() map[string]any {
	d := sm.dc.Dialog
	if d.State == nil {
		d.State = make(map[string]any)
	}
	return d.State
}

// scopesFrame builds the first frame of the memory view.
func (sm *StateManager) scopesFrame() map[string]any {
	frame := sm.dc.Turn.Scopes()
	if d := sm.dc.Dialog; d != nil {
		frame[ScopeDialog] = sm.dialogState()
		if d.Class != nil {
			frame[ScopeClass] = d.Class
		}
	}
	return frame
}

// view returns the memory view, scopes frame first.
func (sm *StateManager) view() []map[string]any {
	frames := make([]map[string]any, 0, 1+len(sm.closures))
	frames = append(frames, sm.scopesFrame())
	for i := len(sm.closures) - 1; i >= 0; i-- {
		frames = append(frames, sm.closures[i])
	}
	return frames
}

// commit writes top-level changes of the scopes frame back to the turn.
func (sm *StateManager) commit(frame map[string]any) {
	turn := sm.dc.Turn
	d := sm.dc.Dialog
	for _, name := range turn.Names() {
		if _, ok := frame[name]; !ok {
			turn.DeleteScope(name)
		}
	}
	if _, ok := frame[ScopeClass]; d != nil && !ok {
		d.Class = nil
	}
	for name, v := range frame {
		switch {
		case d != nil && name == ScopeDialog:
			continue
		case d != nil && name == ScopeClass:
			if m, ok := v.(map[string]any); ok {
				d.Class = m
				continue
			}
		}
		turn.SetScope(name, v)
	}
}

package statepath

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/statepath/internal/logging"
	"github.com/aretw0/statepath/pkg/adapters/inmemory"
	"github.com/aretw0/statepath/pkg/expression"
	"github.com/aretw0/statepath/pkg/memory"
	"github.com/aretw0/statepath/pkg/observability"
	"github.com/aretw0/statepath/pkg/ports"
	"github.com/aretw0/statepath/pkg/session"
	"github.com/aretw0/statepath/pkg/settings"
)

// Engine bundles the parser, resolver registry, settings and persistence
// used to evaluate expressions against conversation state. An Engine is
// safe for concurrent use.
type Engine struct {
	parser        *expression.Parser
	registry      *memory.ResolverRegistry
	settings      map[string]any
	caseSensitive bool
	logger        *slog.Logger
	metrics       *observability.Metrics
	sessions      *session.Manager

	functions    []expression.ParserOption
	resolvers    []memory.PathResolver
	settingsOpts []settings.Option
	store        ports.ScopeStore
	locker       ports.DistributedLocker
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithFunction registers a custom expression function.
func WithFunction(name string, fn expression.Function) Option {
	return func(e *Engine) {
		e.functions = append(e.functions, expression.WithFunction(name, fn))
	}
}

// WithResolver registers a path resolver ahead of the built-in aliases.
func WithResolver(r memory.PathResolver) Option {
	return func(e *Engine) {
		e.resolvers = append(e.resolvers, r)
	}
}

// WithSettings loads the settings scope from the given sources.
func WithSettings(opts ...settings.Option) Option {
	return func(e *Engine) {
		e.settingsOpts = append(e.settingsOpts, opts...)
	}
}

// WithCaseSensitive makes property lookups match exactly.
func WithCaseSensitive(caseSensitive bool) Option {
	return func(e *Engine) {
		e.caseSensitive = caseSensitive
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records resolver and evaluation metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithStore persists user and conversation scopes in store. The default
// keeps them in process memory.
func WithStore(store ports.ScopeStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed locking around turns.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	e.parser = expression.NewParser(e.functions...)

	e.registry = memory.NewResolverRegistry()
	for _, r := range append(e.resolvers, memory.StandardRegistry().Resolvers()...) {
		if err := e.registry.Add(r); err != nil {
			return nil, err
		}
	}
	e.registry.Seal()

	s, err := settings.Load(append([]settings.Option{settings.WithLogger(e.logger)}, e.settingsOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	e.settings = s

	if e.store == nil {
		e.store = inmemory.NewStore()
	}
	sessionOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithTurnOptions(memory.WithSettings(e.settings)),
	}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	return e, nil
}

// Settings returns a copy of the loaded settings.
func (e *Engine) Settings() map[string]any {
	return settings.Filter(e.settings)
}

// Metrics returns the metrics the engine records to, or nil.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// NewTurn creates a scope table seeded with a private copy of the settings.
func (e *Engine) NewTurn(opts ...memory.TurnOption) *memory.Turn {
	return memory.NewTurn(append([]memory.TurnOption{memory.WithSettings(e.settings)}, opts...)...)
}

// StateManager returns a state manager over dc configured with the
// engine's resolvers, case sensitivity, logger and metrics.
func (e *Engine) StateManager(dc *memory.DialogContext) *memory.StateManager {
	opts := []memory.Option{
		memory.WithRegistry(e.registry),
		memory.WithCaseSensitive(e.caseSensitive),
		memory.WithLogger(e.logger),
	}
	if e.metrics != nil {
		opts = append(opts, memory.WithObserver(e.metrics))
	}
	return memory.NewStateManager(dc, opts...)
}

// Parse classifies and parses text with the engine's function library.
func (e *Engine) Parse(text string) (expression.Parsed, error) {
	return e.parser.Parse(text)
}

// Evaluate parses text and evaluates it against mem, which may be a
// memory.StateManager, any expression.Memory, a map or a struct.
func (e *Engine) Evaluate(text string, mem any) (v any, err error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ObserveEvaluation(time.Since(start), err)
		}
	}()

	parsed, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	m, err := expression.MemoryFor(mem)
	if err != nil {
		return nil, err
	}
	v, err = parsed.Eval(m)
	if err != nil {
		return nil, &expression.EvaluationError{Expression: text, Err: err}
	}
	return v, nil
}

// TurnFunc does the work of one turn against a state manager.
type TurnFunc func(ctx context.Context, sm *memory.StateManager) error

// RunTurn loads the persisted scopes for key, runs fn and saves the scopes
// it changed. Turns for the same conversation never overlap.
func (e *Engine) RunTurn(ctx context.Context, key session.TurnKey, fn TurnFunc) error {
	return e.sessions.RunTurn(ctx, key, func(ctx context.Context, turn *memory.Turn) error {
		return fn(ctx, e.StateManager(memory.NewDialogContext(turn)))
	})
}

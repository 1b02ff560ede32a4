package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/statepath"
	"github.com/aretw0/statepath/pkg/adapters/file"
	"github.com/aretw0/statepath/pkg/adapters/redis"
	"github.com/aretw0/statepath/pkg/memory"
	"github.com/aretw0/statepath/pkg/session"
)

// TurnOptions selects the persisted scopes and backend for Turn.
type TurnOptions struct {
	UserID         string
	ConversationID string
	// StoreDir holds file-backed scopes. Ignored when RedisURL is set.
	StoreDir string
	// RedisURL selects the Redis backend, e.g. redis://localhost:6379/0.
	RedisURL string
}

// Turn runs statements inside one persisted turn. "path=value" statements
// write a value parsed as YAML; anything else is evaluated and printed.
// User and conversation scopes are loaded before and saved after.
func Turn(ctx context.Context, opts Options, topts TurnOptions, statements []string) error {
	if topts.UserID == "" && topts.ConversationID == "" {
		return errors.New("a turn needs --user or --conversation")
	}
	logger, err := createLogger(opts)
	if err != nil {
		return err
	}

	var backendOpts []statepath.Option
	if topts.RedisURL != "" {
		ropts, err := backend.ParseURL(topts.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(ropts)
		defer client.Close()
		backendOpts = append(backendOpts,
			statepath.WithStore(redis.NewFromClient(client)),
			statepath.WithLocker(redis.NewLocker(client, "statepath:")),
		)
		logger.Debug("Using redis store", "addr", ropts.Addr)
	} else {
		store := file.New(topts.StoreDir)
		backendOpts = append(backendOpts, statepath.WithStore(store))
		logger.Debug("Using file store", "dir", store.BasePath)
	}

	engine, err := createEngine(opts, logger, backendOpts...)
	if err != nil {
		return err
	}
	p := newPrinter(opts)

	key := session.TurnKey{ConversationID: topts.ConversationID, UserID: topts.UserID}
	return engine.RunTurn(ctx, key, func(ctx context.Context, sm *memory.StateManager) error {
		for _, stmt := range statements {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := runStatement(engine, sm, p, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// splitAssignment recognises "path=value". A leading "=" is an expression
// and "==" is a comparison, so neither is an assignment.
func splitAssignment(stmt string) (string, string, bool) {
	i := strings.Index(stmt, "=")
	if i <= 0 || strings.HasPrefix(stmt[i:], "==") || strings.ContainsAny(stmt[i-1:i], "!<>") {
		return "", "", false
	}
	path := strings.TrimSpace(stmt[:i])
	if path == "" || strings.ContainsAny(path, " ()'\"") {
		return "", "", false
	}
	return path, strings.TrimSpace(stmt[i+1:]), true
}

func runStatement(engine *statepath.Engine, sm *memory.StateManager, p *printer, stmt string) error {
	if path, raw, ok := splitAssignment(stmt); ok {
		value, err := parseValue(raw)
		if err != nil {
			return err
		}
		return sm.SetValue(path, value)
	}
	v, err := engine.Evaluate(stmt, sm)
	if err != nil {
		return err
	}
	return p.value(v)
}

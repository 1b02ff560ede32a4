package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/statepath"
	"github.com/aretw0/statepath/internal/logging"
	"github.com/aretw0/statepath/pkg/settings"
)

// createLogger configures the application logger. It writes to stderr so
// stdout only carries results.
func createLogger(opts Options) (*slog.Logger, error) {
	if opts.LogLevel == "" {
		return logging.NewNop(), nil
	}
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(opts.stderr(), level), nil
}

// createEngine initializes an engine with the CLI conventions.
func createEngine(opts Options, logger *slog.Logger, extra ...statepath.Option) (*statepath.Engine, error) {
	var sources []settings.Option
	for _, f := range opts.SettingsFiles {
		sources = append(sources, settings.WithFile(f))
	}
	if opts.EnvPrefix != "" {
		sources = append(sources, settings.WithEnv(opts.EnvPrefix))
	}

	engineOpts := []statepath.Option{
		statepath.WithLogger(logger),
		statepath.WithCaseSensitive(opts.CaseSensitive),
		statepath.WithSettings(sources...),
	}
	engine, err := statepath.New(append(engineOpts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

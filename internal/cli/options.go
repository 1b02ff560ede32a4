package cli

import (
	"io"
	"os"
)

// Options holds the flags shared by every command.
type Options struct {
	// SettingsFiles are merged in order into the settings scope.
	SettingsFiles []string
	// EnvPrefix selects environment variables for the settings scope.
	EnvPrefix string
	// MemoryFile is a YAML or JSON document with the initial scopes.
	MemoryFile string
	// LogLevel is one of debug, info, warn or error. Empty disables logs.
	LogLevel      string
	CaseSensitive bool
	// JSON prints results as JSON instead of YAML.
	JSON bool

	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

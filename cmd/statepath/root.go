package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/statepath/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "statepath",
	Short: "Evaluate expressions and paths against conversation memory",
	Long: `statepath parses "=expr" expressions, ${...} templates and dotted paths such as
user.todos[0].title, and evaluates them against scoped memory loaded from a YAML
or JSON file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("memory", "m", "", "YAML or JSON file with the initial scopes")
	flags.StringSlice("settings", nil, "Settings files merged into the settings scope")
	flags.String("env-prefix", "", "Load settings from environment variables with this prefix")
	flags.String("log-level", "", "Log to stderr at this level (debug, info, warn, error)")
	flags.Bool("debug", false, "Shorthand for --log-level=debug")
	flags.Bool("case-sensitive", false, "Match property names exactly")
	flags.Bool("json", false, "Print results as JSON")

	rootCmd.SilenceErrors = true
}

// optionsFromFlags collects the persistent flags into cli.Options.
func optionsFromFlags(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	memory, _ := flags.GetString("memory")
	settingsFiles, _ := flags.GetStringSlice("settings")
	envPrefix, _ := flags.GetString("env-prefix")
	logLevel, _ := flags.GetString("log-level")
	debug, _ := flags.GetBool("debug")
	caseSensitive, _ := flags.GetBool("case-sensitive")
	jsonMode, _ := flags.GetBool("json")

	if debug {
		logLevel = "debug"
	}
	return cli.Options{
		SettingsFiles: settingsFiles,
		EnvPrefix:     envPrefix,
		MemoryFile:    memory,
		LogLevel:      logLevel,
		CaseSensitive: caseSensitive,
		JSON:          jsonMode,
		Stdout:        cmd.OutOrStdout(),
		Stderr:        cmd.ErrOrStderr(),
	}
}
